package mongo

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"vapi/internal/docstore"
)

// toQuery turns an equality filter into a MongoDB query. It reports false when
// the filter can match nothing, such as an id that is not an ObjectID.
func toQuery(filter map[string]any) (bson.M, bool) {
	query := bson.M{}
	for k, v := range filter {
		if k != docstore.IDField {
			query[k] = v
			continue
		}
		hex, ok := v.(string)
		if !ok {
			return nil, false
		}
		oid, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return nil, false
		}
		query[mongoIDField] = oid
	}
	return query, true
}

// toBSON copies doc for writing. A client supplied _id is dropped: the
// identifier is owned by the store and MongoDB refuses to change it.
func toBSON(doc docstore.Document) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		if k == mongoIDField {
			continue
		}
		out[k] = v
	}
	return out
}

// storedDocument is doc as it reads back after a write under id.
func storedDocument(doc docstore.Document, id string) docstore.Document {
	out := docstore.Document(toBSON(docstore.WithoutID(doc)))
	out[docstore.IDField] = id
	return out
}

// fromBSON converts a decoded record into plain JSON-compatible values and
// exposes _id as the string id field.
func fromBSON(m bson.M) docstore.Document {
	out := make(docstore.Document, len(m))
	for k, v := range m {
		if k == mongoIDField {
			out[docstore.IDField] = normalize(v)
			continue
		}
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}
