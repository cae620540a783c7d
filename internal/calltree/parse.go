package calltree

import (
	"encoding/json"
	"fmt"
)

// ParseError reports a document that is not valid JSON or does not have
// the expected {"call_tree": {"react_aggregator": [...]}} shape. The
// poll loop treats a ParseError as a cycle with zero trees.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("call tree document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("call tree document: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// document mirrors the wire shape served by the monitored application.
type document struct {
	CallTree *struct {
		ReactAggregator []*Tree `json:"react_aggregator"`
	} `json:"call_tree"`
}

// Parse decodes a raw /call_tree document into its ordered list of call
// trees. No validation is performed beyond the document shape.
func Parse(raw []byte) ([]*Tree, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ParseError{Reason: "invalid JSON", Err: err}
	}
	if doc.CallTree == nil {
		return nil, &ParseError{Reason: `missing "call_tree" object`}
	}
	if doc.CallTree.ReactAggregator == nil {
		return nil, &ParseError{Reason: `missing "call_tree.react_aggregator" list`}
	}
	return doc.CallTree.ReactAggregator, nil
}
