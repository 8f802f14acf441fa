package mongodb

import (
	"errors"
	"regexp"
	"strings"

	"staff_server/core/domain"
	"staff_server/core/port/out"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// =============================================================================
// Query building
// =============================================================================

var mongoOps = map[domain.FilterOp]string{
	domain.OpGt:  "$gt",
	domain.OpGte: "$gte",
	domain.OpLt:  "$lt",
	domain.OpLte: "$lte",
	domain.OpIn:  "$in",
}

// docField maps an API field name to its document path.
func docField(field string) string {
	if field == "id" {
		return "_id"
	}
	return field
}

// buildFilter converts translated conditions to a filter document. Several
// conditions on one field merge into a single sub-document; an equality
// that meets an operator becomes $eq inside it.
func buildFilter(conds []domain.Condition) bson.M {
	filter := bson.M{}
	for _, c := range conds {
		key := docField(c.Field)
		op := "$eq"
		if c.Op != domain.OpEq {
			var ok bool
			if op, ok = mongoOps[c.Op]; !ok {
				continue
			}
		}

		existing, seen := filter[key]
		if !seen {
			if op == "$eq" {
				filter[key] = c.Value
			} else {
				filter[key] = bson.M{op: c.Value}
			}
			continue
		}
		sub, ok := existing.(bson.M)
		if !ok {
			sub = bson.M{"$eq": existing}
			filter[key] = sub
		}
		sub[op] = c.Value
	}
	return filter
}

func buildSort(fields []domain.SortField) bson.D {
	sort := make(bson.D, 0, len(fields)+1)
	hasID := false
	for _, f := range fields {
		dir := 1
		if f.Desc {
			dir = -1
		}
		key := docField(f.Field)
		hasID = hasID || key == "_id"
		sort = append(sort, bson.E{Key: key, Value: dir})
	}
	// stable paging across equal keys
	if !hasID {
		sort = append(sort, bson.E{Key: "_id", Value: -1})
	}
	return sort
}

// buildProjection returns nil when every field is wanted.
func buildProjection(fields []string) bson.M {
	if len(fields) == 0 {
		return nil
	}
	proj := bson.M{"_id": 1}
	for _, f := range fields {
		proj[docField(f)] = 1
	}
	return proj
}

// searchFilter matches the text case-insensitively as a substring of any
// searchable field, ANDed with the exact department and status filters.
func searchFilter(q *domain.SearchQuery) bson.M {
	filter := bson.M{}
	if q.Text != "" {
		pattern := regexp.QuoteMeta(q.Text)
		or := make(bson.A, 0, len(searchFields))
		for _, f := range searchFields {
			or = append(or, bson.M{f: bson.M{"$regex": pattern, "$options": "i"}})
		}
		filter["$or"] = or
	}
	if q.Department != "" {
		filter["department"] = string(q.Department)
	}
	if q.Status != "" {
		filter["status"] = string(q.Status)
	}
	return filter
}

var searchFields = []string{"firstName", "lastName", "email", "employeeId"}

// buildUpdate returns an update pipeline setting only the present patch
// fields. Values are wrapped in $literal so strings starting with $ are not
// read as field paths; fullName is derived from the stored names after the
// write so a concurrent change to the other name is kept.
func buildUpdate(p *domain.EmployeePatch) mongo.Pipeline {
	set := bson.M{
		"updatedBy": literal(p.UpdatedBy),
		"updatedAt": literal(p.UpdatedAt),
	}
	put := func(key string, present bool, v any) {
		if present {
			set[key] = literal(v)
		}
	}
	put("firstName", p.FirstName != nil, deref(p.FirstName))
	put("lastName", p.LastName != nil, deref(p.LastName))
	put("email", p.Email != nil, deref(p.Email))
	put("phone", p.Phone != nil, deref(p.Phone))
	put("position", p.Position != nil, deref(p.Position))
	put("photo", p.Photo != nil, deref(p.Photo))
	if p.Department != nil {
		set["department"] = literal(string(*p.Department))
	}
	if p.Status != nil {
		set["status"] = literal(string(*p.Status))
	}
	if p.Salary != nil {
		set["salary"] = literal(*p.Salary)
	}
	if p.HireDate != nil {
		set["hireDate"] = literal(*p.HireDate)
	}
	if p.Address != nil {
		set["address"] = literal(toAddressDocument(p.Address))
	}
	if p.EmergencyContact != nil {
		set["emergencyContact"] = literal(toEmergencyContactDocument(p.EmergencyContact))
	}

	fullName := bson.M{"$trim": bson.M{"input": bson.M{"$concat": bson.A{"$firstName", " ", "$lastName"}}}}
	return mongo.Pipeline{
		{{Key: "$set", Value: set}},
		{{Key: "$set", Value: bson.M{"fullName": fullName}}},
	}
}

func literal(v any) bson.M {
	return bson.M{"$literal": v}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// departmentStatsPipeline groups by department, largest first.
func departmentStatsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":         "$department",
			"count":       bson.M{"$sum": 1},
			"avgSalary":   bson.M{"$avg": "$salary"},
			"totalSalary": bson.M{"$sum": "$salary"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
}

func statusStatsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
}

// =============================================================================
// Error mapping
// =============================================================================

var dupKeyPattern = regexp.MustCompile(`index: (\S+) dup key: \{ ?"?([A-Za-z0-9_.]+)"?\s*:`)

// indexFields names the field guarded by each unique index.
var indexFields = map[string]string{
	indexEmployeeID: "employeeId",
	indexEmail:      "email",
}

// duplicateField extracts the violated field from a duplicate key error.
func duplicateField(err error) string {
	msg := err.Error()
	if m := dupKeyPattern.FindStringSubmatch(msg); m != nil {
		if f, ok := indexFields[m[1]]; ok {
			return f
		}
		return m[2]
	}
	for index, field := range indexFields {
		if strings.Contains(msg, index) {
			return field
		}
	}
	return "unknown"
}

// mapWriteError converts duplicate key errors into *out.DuplicateKeyError.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return &out.DuplicateKeyError{Field: duplicateField(err), Err: err}
	}
	return err
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
