package repository

import (
	"fmt"
	"strings"
)

// conditions accumulates AND-ed WHERE clauses with positional placeholders.
type conditions struct {
	clauses []string
	args    []interface{}
}

// add appends a clause whose single %d verb receives the placeholder index of arg.
func (c *conditions) add(format string, arg interface{}) {
	c.args = append(c.args, arg)
	c.clauses = append(c.clauses, fmt.Sprintf(format, len(c.args)))
}

func (c *conditions) addIf(ok bool, format string, arg interface{}) {
	if ok {
		c.add(format, arg)
	}
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}
