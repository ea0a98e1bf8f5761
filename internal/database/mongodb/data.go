package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/erenbertr/op3-sub001/internal/database/common"
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

// DataOps implements storage.DataOperator for MongoDB.
//
// The server enforces no uniqueness without indexes, so declared constraints
// are checked here before every insert and upsert. The check is a count query
// followed by the write; concurrent writers on the same key set can slip
// through it, which callers on this engine accept in exchange for provisioning
// that never fails.
type DataOps struct {
	conn *Connection
}

func (d *DataOps) collection(table *storage.TableDefinition) *mongo.Collection {
	return d.conn.db.Collection(table.Name)
}

// Insert stores a new document and returns it with normalized values.
func (d *DataOps) Insert(ctx context.Context, table *storage.TableDefinition, record storage.Record) (storage.Record, error) {
	if err := d.checkUnique(ctx, table, record, nil); err != nil {
		return nil, err
	}

	doc := bson.M{}
	for key, value := range record {
		doc[key] = value
	}
	if _, err := d.collection(table).InsertOne(ctx, doc); err != nil {
		return nil, translateError(table, err)
	}

	if pk, ok := table.PrimaryKey(); ok {
		if value, present := record[pk.Name]; present {
			return d.FindOne(ctx, table, storage.Predicate{pk.Name: value})
		}
	}
	return storage.NormalizeRecord(table, record.Clone())
}

// FindOne returns the first document matching the predicate, or nil when
// nothing matches.
func (d *DataOps) FindOne(ctx context.Context, table *storage.TableDefinition, predicate storage.Predicate) (storage.Record, error) {
	var raw bson.M
	err := d.collection(table).FindOne(ctx, buildFilter(predicate)).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, translateError(table, err)
	}
	return decodeDocument(table, raw)
}

// FindMany returns all documents matching the predicate, honoring the
// ordering and limit in opts.
func (d *DataOps) FindMany(ctx context.Context, table *storage.TableDefinition, predicate storage.Predicate, opts *storage.FindOptions) ([]storage.Record, error) {
	findOpts := options.Find()
	if opts != nil {
		if len(opts.OrderBy) > 0 {
			sortDoc := bson.D{}
			for _, order := range opts.OrderBy {
				direction := 1
				if order.Descending {
					direction = -1
				}
				sortDoc = append(sortDoc, bson.E{Key: order.Column, Value: direction})
			}
			findOpts.SetSort(sortDoc)
		}
		if opts.Limit > 0 {
			findOpts.SetLimit(int64(opts.Limit))
		}
	}

	cursor, err := d.collection(table).Find(ctx, buildFilter(predicate), findOpts)
	if err != nil {
		return nil, translateError(table, err)
	}
	defer cursor.Close(ctx)

	var records []storage.Record
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, translateError(table, err)
		}
		record, err := decodeDocument(table, raw)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := cursor.Err(); err != nil {
		return nil, translateError(table, err)
	}
	return records, nil
}

// Update applies the patch to every matching document and returns the match
// count. Zero matches is a NotFoundError.
func (d *DataOps) Update(ctx context.Context, table *storage.TableDefinition, predicate storage.Predicate, patch storage.Record) (int64, error) {
	set := bson.M{}
	for key, value := range patch {
		set[key] = value
	}

	result, err := d.collection(table).UpdateMany(ctx, buildFilter(predicate), bson.M{"$set": set})
	if err != nil {
		return 0, translateError(table, err)
	}
	if result.MatchedCount == 0 {
		return 0, storage.NewNotFoundError(table.Name)
	}
	return result.MatchedCount, nil
}

// Delete removes every matching document and returns the removal count.
// Zero matches is a NotFoundError.
func (d *DataOps) Delete(ctx context.Context, table *storage.TableDefinition, predicate storage.Predicate) (int64, error) {
	result, err := d.collection(table).DeleteMany(ctx, buildFilter(predicate))
	if err != nil {
		return 0, translateError(table, err)
	}
	if result.DeletedCount == 0 {
		return 0, storage.NewNotFoundError(table.Name)
	}
	return result.DeletedCount, nil
}

// Upsert inserts the record when the predicate matches nothing and updates
// the matching document otherwise, using a single server-side upsert write.
func (d *DataOps) Upsert(ctx context.Context, table *storage.TableDefinition, predicate storage.Predicate, record storage.Record) (storage.Record, error) {
	merged := common.MergePredicate(record, predicate)
	filter := buildFilter(predicate)

	if err := d.checkUnique(ctx, table, merged, filter); err != nil {
		return nil, err
	}

	set := bson.M{}
	for key, value := range merged {
		set[key] = value
	}
	opts := options.UpdateOne().SetUpsert(true)
	if _, err := d.collection(table).UpdateOne(ctx, filter, bson.M{"$set": set}, opts); err != nil {
		return nil, translateError(table, err)
	}

	return d.FindOne(ctx, table, predicate)
}

// uniqueSets returns every column set whose values must be unique: the
// primary key and any declared unique constraints.
func uniqueSets(table *storage.TableDefinition) []storage.UniqueConstraint {
	var sets []storage.UniqueConstraint
	if pk, ok := table.PrimaryKey(); ok {
		sets = append(sets, storage.UniqueConstraint{
			Name:    table.Name + "_pkey",
			Columns: []string{pk.Name},
		})
	}
	return append(sets, table.UniqueConstraints...)
}

// checkUnique rejects a write whose values collide with an existing document
// on any unique column set. Documents matching exclude are ignored; an upsert
// passes its own predicate there so updating a document in place does not
// collide with itself.
func (d *DataOps) checkUnique(ctx context.Context, table *storage.TableDefinition, record storage.Record, exclude bson.M) error {
	for _, set := range uniqueSets(table) {
		conflict := bson.M{}
		complete := true
		for _, name := range set.Columns {
			value, present := record[name]
			if !present || value == nil {
				complete = false
				break
			}
			conflict[name] = value
		}
		if !complete {
			continue
		}

		filter := conflict
		if len(exclude) > 0 {
			filter = bson.M{"$and": bson.A{conflict, bson.M{"$nor": bson.A{exclude}}}}
		}
		count, err := d.collection(table).CountDocuments(ctx, filter)
		if err != nil {
			return translateError(table, err)
		}
		if count > 0 {
			return storage.NewConstraintError(storage.MongoDB, table.Name, set.Name,
				fmt.Errorf("duplicate value for columns %v", set.Columns))
		}
	}
	return nil
}

// buildFilter turns an equality predicate into a MongoDB filter document.
func buildFilter(predicate storage.Predicate) bson.M {
	filter := bson.M{}
	for key, value := range predicate {
		filter[key] = value
	}
	return filter
}

// decodeDocument converts a raw document to a logical record. The driver's
// _id field is dropped unless the table declares a column by that name.
func decodeDocument(table *storage.TableDefinition, raw bson.M) (storage.Record, error) {
	record := make(storage.Record, len(raw))
	for key, value := range raw {
		if key == "_id" {
			if _, declared := table.Column("_id"); !declared {
				continue
			}
		}
		record[key] = convertBSONValue(value)
	}
	return storage.NormalizeRecord(table, record)
}

// convertBSONValue converts BSON driver types to standard Go types,
// recursing into nested documents and arrays.
func convertBSONValue(value interface{}) interface{} {
	switch v := value.(type) {
	case bson.ObjectID:
		return v.Hex()
	case bson.DateTime:
		return v.Time().UTC()
	case bson.Binary:
		return string(v.Data)
	case bson.D:
		converted := make(map[string]interface{}, len(v))
		for _, elem := range v {
			converted[elem.Key] = convertBSONValue(elem.Value)
		}
		return converted
	case bson.M:
		converted := make(map[string]interface{}, len(v))
		for key, elem := range v {
			converted[key] = convertBSONValue(elem)
		}
		return converted
	case bson.A:
		converted := make([]interface{}, len(v))
		for i, elem := range v {
			converted[i] = convertBSONValue(elem)
		}
		return converted
	case time.Time:
		return v.UTC()
	default:
		return v
	}
}

// translateError converts driver errors into the storage taxonomy.
func translateError(table *storage.TableDefinition, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return storage.NewConstraintError(storage.MongoDB, table.Name, "", err)
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return storage.NewConnectionError(storage.MongoDB, "", err)
	}
	return storage.WrapError(storage.MongoDB, "query", table.Name, err)
}
