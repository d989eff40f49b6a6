// Package querybuilder generalizes the repeated "build a WHERE clause from
// optional filters" pattern into a reusable, whitelisted-column Builder so
// callers never string-interpolate user input into SQL. See Builder.
package querybuilder
