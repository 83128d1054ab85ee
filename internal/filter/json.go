package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// maxDepth bounds nesting of decoded filter documents.
const maxDepth = 64

type wireNode struct {
	Column      string             `json:"column"`
	Operator    Operator           `json:"operator"`
	Value       json.RawMessage    `json:"value"`
	TableName   string             `json:"tableName"`
	OwningTable string             `json:"owningTable"`
	And         *[]json.RawMessage `json:"and"`
	Or          *[]json.RawMessage `json:"or"`
	Not         json.RawMessage    `json:"not"`
}

type wireLeaf struct {
	Column    string   `json:"column"`
	Operator  Operator `json:"operator"`
	Value     any      `json:"value"`
	TableName string   `json:"tableName,omitempty"`
}

// Decode parses one filter node.
func Decode(data []byte) (Node, error) {
	return decodeNode(data, "", 0)
}

// DecodeList parses a JSON array of filter nodes. A null or empty document
// yields an empty list.
func DecodeList(data []byte) ([]Node, error) {
	var l List
	if err := l.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return l, nil
}

func decodeNode(data []byte, path string, depth int) (Node, error) {
	if depth > maxDepth {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("nesting deeper than %d", maxDepth)}
	}

	var w wireNode
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, &DecodeError{Path: path, Message: err.Error()}
	}

	isLeaf := w.Column != "" || w.Operator != "" || len(w.Value) > 0
	shapes := 0
	for _, present := range []bool{isLeaf, w.And != nil, w.Or != nil, w.Not != nil} {
		if present {
			shapes++
		}
	}
	if shapes != 1 {
		return nil, &DecodeError{Path: path, Message: "node must be exactly one of leaf, and, or, not"}
	}

	switch {
	case w.And != nil:
		children, err := decodeChildren(*w.And, path+".and", depth)
		if err != nil {
			return nil, err
		}
		return &And{Children: children}, nil
	case w.Or != nil:
		children, err := decodeChildren(*w.Or, path+".or", depth)
		if err != nil {
			return nil, err
		}
		return &Or{Children: children}, nil
	case w.Not != nil:
		if bytes.Equal(bytes.TrimSpace(w.Not), []byte("null")) {
			return nil, &DecodeError{Path: path + ".not", Message: "not requires a child"}
		}
		child, err := decodeNode(w.Not, path+".not", depth+1)
		if err != nil {
			return nil, err
		}
		return &Not{Child: child}, nil
	}

	return decodeLeaf(w, path)
}

func decodeChildren(raw []json.RawMessage, path string, depth int) ([]Node, error) {
	children := make([]Node, 0, len(raw))
	for i, r := range raw {
		child, err := decodeNode(r, fmt.Sprintf("%s[%d]", path, i), depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func decodeLeaf(w wireNode, path string) (*Leaf, error) {
	if w.Column == "" {
		return nil, &DecodeError{Path: path, Message: "leaf requires a column"}
	}
	if !w.Operator.Valid() {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unsupported operator %q", w.Operator)}
	}

	table := w.TableName
	if table == "" {
		table = w.OwningTable
	} else if w.OwningTable != "" && w.OwningTable != table {
		return nil, &DecodeError{Path: path, Message: "tableName and owningTable disagree"}
	}

	var value any
	if len(w.Value) > 0 {
		dec := json.NewDecoder(bytes.NewReader(w.Value))
		dec.UseNumber()
		if err := dec.Decode(&value); err != nil {
			return nil, &DecodeError{Path: path + ".value", Message: err.Error()}
		}
		value = normalizeNumber(value)
	}

	return &Leaf{Column: w.Column, Operator: w.Operator, Value: value, Table: table}, nil
}

// MarshalJSON encodes the leaf in wire form.
func (l *Leaf) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireLeaf{Column: l.Column, Operator: l.Operator, Value: l.Value, TableName: l.Table})
}

// MarshalJSON encodes the node in wire form.
func (a *And) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]List{"and": nonNil(a.Children)})
}

// MarshalJSON encodes the node in wire form.
func (o *Or) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]List{"or": nonNil(o.Children)})
}

// MarshalJSON encodes the node in wire form.
func (n *Not) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]Node{"not": n.Child})
}

func nonNil(nodes []Node) List {
	if nodes == nil {
		return List{}
	}
	return nodes
}

// List is a JSON array of filters, the shape of request bodies and
// session-held filter sets.
type List []Node

// UnmarshalJSON decodes each element with Decode.
func (l *List) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = List{}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return &DecodeError{Message: "expected an array of filters: " + err.Error()}
	}
	out := make(List, 0, len(raw))
	for i, r := range raw {
		n, err := decodeNode(r, fmt.Sprintf("[%d]", i), 0)
		if err != nil {
			return err
		}
		out = append(out, n)
	}
	*l = out
	return nil
}
