package sqlite

import (
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

func init() {
	// Register SQLite adapter
	storage.Register(NewAdapter())
}
