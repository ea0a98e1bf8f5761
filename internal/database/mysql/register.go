package mysql

import (
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

func init() {
	// Register MySQL adapter
	storage.Register(NewAdapter())
}
