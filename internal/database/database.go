// Package database pulls in every engine adapter so that a single blank
// import registers the full set with the storage registry.
package database

import (
	_ "github.com/erenbertr/op3-sub001/internal/database/mongodb"
	_ "github.com/erenbertr/op3-sub001/internal/database/mysql"
	_ "github.com/erenbertr/op3-sub001/internal/database/postgres"
	_ "github.com/erenbertr/op3-sub001/internal/database/sqlite"
)
