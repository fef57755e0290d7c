package scope_test

import (
	"testing"

	"github.com/mickamy/ramster/scope"
)

// mockApplier records calls from Scope.Apply for assertions.
type mockApplier struct {
	wheres     []appliedWhere
	orderBys   []string
	attributes [][]string
	limit      *int
	offset     *int
}

type appliedWhere struct {
	clause string
	args   []any
}

func (m *mockApplier) ApplyWhere(clause string, args []any) {
	m.wheres = append(m.wheres, appliedWhere{clause, args})
}
func (m *mockApplier) ApplyOrderBy(clause string)       { m.orderBys = append(m.orderBys, clause) }
func (m *mockApplier) ApplyLimit(n int)                 { m.limit = &n }
func (m *mockApplier) ApplyOffset(n int)                { m.offset = &n }
func (m *mockApplier) ApplyAttributes(columns []string) { m.attributes = append(m.attributes, columns) }

func TestWhere(t *testing.T) {
	t.Parallel()

	m := &mockApplier{}
	scope.Where(`"userType"."status" = ?`, true).Apply(m)

	if len(m.wheres) != 1 {
		t.Fatalf("expected 1 where, got %d", len(m.wheres))
	}
	if m.wheres[0].clause != `"userType"."status" = ?` {
		t.Errorf("clause = %q", m.wheres[0].clause)
	}
	if len(m.wheres[0].args) != 1 || m.wheres[0].args[0] != true {
		t.Errorf("args = %v, want [true]", m.wheres[0].args)
	}
}

func TestWhereArgsAreCopied(t *testing.T) {
	t.Parallel()

	s := scope.Where("a = ? AND b = ?", 1, 2)

	m1 := &mockApplier{}
	s.Apply(m1)
	m1.wheres[0].args[0] = 99

	m2 := &mockApplier{}
	s.Apply(m2)
	if m2.wheres[0].args[0] != 1 {
		t.Errorf("args mutated through applier: %v", m2.wheres[0].args)
	}
}

func TestOrderBy(t *testing.T) {
	t.Parallel()

	m := &mockApplier{}
	scope.OrderBy(`"userType"."name" ASC`).Apply(m)

	if len(m.orderBys) != 1 || m.orderBys[0] != `"userType"."name" ASC` {
		t.Errorf("orderBys = %v", m.orderBys)
	}
}

func TestLimitOffset(t *testing.T) {
	t.Parallel()

	m := &mockApplier{}
	scope.Combine(scope.Limit(25), scope.Offset(50)).Apply(m)

	if m.limit == nil || *m.limit != 25 {
		t.Errorf("limit = %v, want 25", m.limit)
	}
	if m.offset == nil || *m.offset != 50 {
		t.Errorf("offset = %v, want 50", m.offset)
	}
}

func TestAttributes(t *testing.T) {
	t.Parallel()

	m := &mockApplier{}
	scope.Attributes("id", "name").Apply(m)

	if len(m.attributes) != 1 {
		t.Fatalf("expected 1 attributes call, got %d", len(m.attributes))
	}
	got := m.attributes[0]
	if len(got) != 2 || got[0] != "id" || got[1] != "name" {
		t.Errorf("attributes = %v, want [id name]", got)
	}
}

func TestScopesAppendDoesNotMutate(t *testing.T) {
	t.Parallel()

	base := scope.Combine(scope.Limit(10))
	extended := base.Append(scope.Offset(5))

	if len(base) != 1 {
		t.Errorf("base len = %d, want 1", len(base))
	}
	if len(extended) != 2 {
		t.Errorf("extended len = %d, want 2", len(extended))
	}
}

func TestScopesMerge(t *testing.T) {
	t.Parallel()

	a := scope.Combine(scope.Where("a = ?", 1))
	b := scope.Combine(scope.OrderBy("b"), scope.Limit(3))

	m := &mockApplier{}
	a.Merge(b).Apply(m)

	if len(m.wheres) != 1 || len(m.orderBys) != 1 || m.limit == nil || *m.limit != 3 {
		t.Errorf("merged scopes applied incorrectly: %+v", m)
	}
	if len(a) != 1 || len(b) != 2 {
		t.Errorf("merge mutated inputs: a=%d b=%d", len(a), len(b))
	}
}
