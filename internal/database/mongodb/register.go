package mongodb

import (
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

func init() {
	// Register MongoDB adapter
	storage.Register(NewAdapter())
}
