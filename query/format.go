package query

import (
	"fmt"

	"github.com/mickamy/ramster/orm"
)

// Record is one formatted entity. Single relations hold a Record or nil,
// multiple relations a []Record.
type Record = map[string]any

// node mirrors the selected relation tree. Bridge relations have no node;
// their model is attached to the bridge's parent.
type node struct {
	name     string
	path     string
	pk       string
	columns  []string
	multiple bool
	children []*node
}

func (n *node) childPath(name string) string {
	if n.path == "" {
		return name
	}
	return n.path + "." + name
}

// label is the result column name of col for this node.
func (n *node) label(col string) string {
	if n.path == "" {
		return col
	}
	return n.path + "." + col
}

func (n *node) fansOut() bool {
	for _, c := range n.children {
		if c.multiple || c.fansOut() {
			return true
		}
	}
	return false
}

func (n *node) record(row orm.Row) Record {
	rec := make(Record, len(n.columns)+len(n.children))
	for _, c := range n.columns {
		rec[c] = row[n.label(c)]
	}
	return rec
}

// Format folds joined rows into one record per root primary key, in
// first-seen order. Elements of multiple relations are deduplicated by
// their own primary key within their parent.
func (p *Plan) Format(rows []orm.Row) []Record {
	out := make([]Record, 0, len(rows))
	roots := make(map[string]Record, len(rows))
	elems := map[string]Record{}

	for i, row := range rows {
		key := rowKey(row[p.tree.pk], i)
		rec, ok := roots[key]
		if !ok {
			rec = p.tree.record(row)
			roots[key] = rec
			out = append(out, rec)
		}
		p.tree.fill(rec, row, key, elems)
	}
	return out
}

func (n *node) fill(rec Record, row orm.Row, key string, elems map[string]Record) {
	for _, c := range n.children {
		id := row[c.label(c.pk)]
		if id == nil {
			if _, seen := rec[c.name]; !seen {
				if c.multiple {
					rec[c.name] = []Record{}
				} else {
					rec[c.name] = nil
				}
			}
			continue
		}

		childKey := key + "/" + c.name + ":" + fmt.Sprint(id)
		if !c.multiple {
			child, ok := rec[c.name].(Record)
			if !ok {
				child = c.record(row)
				rec[c.name] = child
			}
			c.fill(child, row, childKey, elems)
			continue
		}

		child, ok := elems[childKey]
		if !ok {
			child = c.record(row)
			elems[childKey] = child
			list, _ := rec[c.name].([]Record)
			rec[c.name] = append(list, child)
		}
		c.fill(child, row, childKey, elems)
	}
}

// rowKey identifies a root row. Rows without a primary key are never
// merged.
func rowKey(id any, i int) string {
	if id == nil {
		return fmt.Sprintf("#%d", i)
	}
	return fmt.Sprint(id)
}
