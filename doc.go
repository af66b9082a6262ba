// Package dbkit provides a minimal data-access layer on top of database/sql:
// a query-execution template that removes the boilerplate around acquiring a
// connection, binding parameters, mapping rows, and releasing resources, and
// a transaction manager that wraps a unit of work in an explicit
// begin/commit/rollback envelope.
//
// The two components are coupled only through the ConnectionSource
// abstraction. Statements issued inside a transaction reuse the bound
// transaction handle via Template.WithConn, which is how multiple statements
// inside one unit of work become atomic.
package dbkit
