package queryir

import (
	"errors"
	"fmt"
)

// Validate checks a query for structural problems the compiler would
// otherwise turn into malformed SQL: missing tables, empty identifiers,
// nil operands, joins without conditions.
//
// Validate is a pure function with no side effects. All problems are
// reported, joined with errors.Join.
func Validate(query Query) error {
	v := &validator{}
	v.validateQuery(query)
	return errors.Join(v.errs...)
}

// Params returns the names of every Param referenced by a query, in the
// order they appear in the generated SQL, duplicates included.
func Params(query Query) []string {
	c := &paramCollector{}
	c.query(query)
	return c.names
}

// validator accumulates errors during traversal.
type validator struct {
	errs []error
}

func (v *validator) addError(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addError("nil query")
	case Select:
		v.validateSelect(query)
	case Count:
		v.validateSelect(query.Source)
	default:
		v.addError("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.From.Name == "" {
		v.addError("select has no FROM table")
	}
	for _, proj := range sel.Columns {
		v.validateColumn(proj.Column)
	}
	for _, j := range sel.Joins {
		if j.Table.Name == "" || j.Table.Alias == "" {
			v.addError("join needs a table and an alias")
		}
		if j.On == nil {
			v.addError("join %s has no ON condition", j.Table.Alias)
			continue
		}
		v.validatePredicate(j.On)
	}
	if sel.Where != nil {
		v.validatePredicate(sel.Where)
	}
	for _, o := range sel.OrderBy {
		v.validateColumn(o.Column)
	}
	if sel.Limit < 0 || sel.Offset < 0 {
		v.addError("limit and offset must not be negative")
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.addError("nil predicate")
	case Equals:
		v.validateOperand(pred.Left)
		v.validateOperand(pred.Right)
	case Between:
		v.validateOperand(pred.Value)
		v.validateOperand(pred.Low)
		v.validateOperand(pred.High)
	case IsNull:
		v.validateOperand(pred.Operand)
	case PrefixMatch:
		v.validateOperand(pred.Value)
		v.validateOperand(pred.Prefix)
	case And:
		for _, inner := range pred.Predicates {
			v.validatePredicate(inner)
		}
	case Or:
		if len(pred.Predicates) == 0 {
			v.addError("empty OR")
		}
		for _, inner := range pred.Predicates {
			v.validatePredicate(inner)
		}
	case Not:
		v.validatePredicate(pred.Predicate)
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) validateOperand(o Operand) {
	switch op := o.(type) {
	case nil:
		v.addError("nil operand")
	case Column:
		v.validateColumn(op)
	case Param:
		if op.Name == "" {
			v.addError("parameter without a name")
		}
	case Subquery:
		v.validateSelect(op.Query)
	default:
		v.addError("unknown operand type: %T", o)
	}
}

func (v *validator) validateColumn(c Column) {
	if c.Name == "" {
		v.addError("column without a name")
	}
}

// paramCollector walks a query in SQL text order.
type paramCollector struct {
	names []string
}

func (c *paramCollector) query(q Query) {
	switch query := q.(type) {
	case Select:
		c.selectQuery(query)
	case Count:
		c.selectQuery(query.Source)
	}
}

func (c *paramCollector) selectQuery(sel Select) {
	for _, j := range sel.Joins {
		c.predicate(j.On)
	}
	c.predicate(sel.Where)
}

func (c *paramCollector) predicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		c.operand(pred.Left)
		c.operand(pred.Right)
	case Between:
		c.operand(pred.Value)
		c.operand(pred.Low)
		c.operand(pred.High)
	case IsNull:
		c.operand(pred.Operand)
	case PrefixMatch:
		c.operand(pred.Value)
		c.operand(pred.Prefix)
	case And:
		for _, inner := range pred.Predicates {
			c.predicate(inner)
		}
	case Or:
		for _, inner := range pred.Predicates {
			c.predicate(inner)
		}
	case Not:
		c.predicate(pred.Predicate)
	}
}

func (c *paramCollector) operand(o Operand) {
	switch op := o.(type) {
	case Param:
		c.names = append(c.names, op.Name)
	case Subquery:
		c.selectQuery(op.Query)
	}
}
