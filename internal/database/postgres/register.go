package postgres

import (
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

func init() {
	// Register PostgreSQL adapter
	storage.Register(NewAdapter())
}
