package mongodb

import (
	"context"
	"fmt"
	"time"

	"staff_server/core/domain"
	"staff_server/core/port/out"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Employee Adapter
// =============================================================================

const (
	collectionEmployees = "employees"

	indexEmployeeID = "uniq_employeeId"
	indexEmail      = "uniq_email"
)

// EmployeeAdapter implements out.EmployeeRepository using MongoDB.
type EmployeeAdapter struct {
	collection *mongo.Collection
}

var _ out.EmployeeRepository = (*EmployeeAdapter)(nil)

// NewEmployeeAdapter creates a new MongoDB employee adapter.
func NewEmployeeAdapter(db *mongo.Database) *EmployeeAdapter {
	return &EmployeeAdapter{collection: db.Collection(collectionEmployees)}
}

// EnsureIndexes creates the unique and lookup indexes. The employeeId index
// is partial so legacy records without an id do not collide.
func (a *EmployeeAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "employeeId", Value: 1}},
			Options: options.Index().
				SetName(indexEmployeeID).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"employeeId": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(indexEmail).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "employeeSeq", Value: -1}},
			Options: options.Index().SetName("idx_employeeSeq"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "department", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_department_status"),
		},
	}

	if _, err := a.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create employee indexes: %w", err)
	}
	return nil
}

// =============================================================================
// Document Model
// =============================================================================

type addressDocument struct {
	Street  string `bson:"street,omitempty"`
	City    string `bson:"city,omitempty"`
	State   string `bson:"state,omitempty"`
	ZipCode string `bson:"zipCode,omitempty"`
	Country string `bson:"country,omitempty"`
}

type emergencyContactDocument struct {
	Name         string `bson:"name,omitempty"`
	Relationship string `bson:"relationship,omitempty"`
	Phone        string `bson:"phone,omitempty"`
}

// employeeDocument represents the MongoDB document structure.
type employeeDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	EmployeeID  string             `bson:"employeeId,omitempty"`
	EmployeeSeq int64              `bson:"employeeSeq,omitempty"`

	FirstName  string  `bson:"firstName"`
	LastName   string  `bson:"lastName"`
	FullName   string  `bson:"fullName"`
	Email      string  `bson:"email"`
	Phone      string  `bson:"phone"`
	Department string  `bson:"department"`
	Position   string  `bson:"position"`
	Salary     float64 `bson:"salary"`
	Status     string  `bson:"status"`
	Photo      string  `bson:"photo"`

	HireDate time.Time `bson:"hireDate"`

	Address          *addressDocument          `bson:"address,omitempty"`
	EmergencyContact *emergencyContactDocument `bson:"emergencyContact,omitempty"`

	CreatedBy string `bson:"createdBy"`
	UpdatedBy string `bson:"updatedBy,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// =============================================================================
// Single Operations
// =============================================================================

func (a *EmployeeAdapter) Insert(ctx context.Context, e *domain.Employee) error {
	doc := toEmployeeDocument(e)
	doc.ID = primitive.NewObjectID()

	if _, err := a.collection.InsertOne(ctx, doc); err != nil {
		return mapWriteError(fmt.Errorf("failed to insert employee: %w", err))
	}
	e.ID = doc.ID.Hex()
	return nil
}

// FindByID returns nil, nil for ids that are malformed or unknown.
func (a *EmployeeAdapter) FindByID(ctx context.Context, id string) (*domain.Employee, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc employeeDocument
	if err := a.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return doc.toDomain(), nil
}

// Update sets the present patch fields in one pipeline update and returns
// the document as stored afterwards. employeeId, createdBy and createdAt are
// never part of the update.
func (a *EmployeeAdapter) Update(ctx context.Context, id string, patch *domain.EmployeePatch) (*domain.Employee, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc employeeDocument
	err = a.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, buildUpdate(patch), opts).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, mapWriteError(fmt.Errorf("failed to update employee: %w", err))
	}
	return doc.toDomain(), nil
}

func (a *EmployeeAdapter) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	res, err := a.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("failed to delete employee: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// FindMaxEmployeeID orders by the numeric suffix, so EMP10000 sorts after EMP9999.
func (a *EmployeeAdapter) FindMaxEmployeeID(ctx context.Context) (string, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "employeeSeq", Value: -1}, {Key: "employeeId", Value: -1}}).
		SetProjection(bson.M{"employeeId": 1})

	var doc struct {
		EmployeeID string `bson:"employeeId"`
	}
	err := a.collection.FindOne(ctx, bson.M{"employeeId": bson.M{"$type": "string", "$ne": ""}}, opts).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find max employee id: %w", err)
	}
	return doc.EmployeeID, nil
}

// =============================================================================
// Queries
// =============================================================================

func (a *EmployeeAdapter) Find(ctx context.Context, q *domain.EmployeeQuery) ([]*domain.Employee, error) {
	opts := options.Find().
		SetSort(buildSort(q.Sort)).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))
	if proj := buildProjection(q.Projection); proj != nil {
		opts.SetProjection(proj)
	}

	cursor, err := a.collection.Find(ctx, buildFilter(q.Conditions), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return decodeEmployees(ctx, cursor)
}

func (a *EmployeeAdapter) Count(ctx context.Context, conds []domain.Condition) (int64, error) {
	n, err := a.collection.CountDocuments(ctx, buildFilter(conds))
	if err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return n, nil
}

func (a *EmployeeAdapter) Search(ctx context.Context, q *domain.SearchQuery) ([]*domain.Employee, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(q.Limit))

	cursor, err := a.collection.Find(ctx, searchFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search employees: %w", err)
	}
	return decodeEmployees(ctx, cursor)
}

func (a *EmployeeAdapter) CountSearch(ctx context.Context, q *domain.SearchQuery) (int64, error) {
	n, err := a.collection.CountDocuments(ctx, searchFilter(q))
	if err != nil {
		return 0, fmt.Errorf("failed to count search hits: %w", err)
	}
	return n, nil
}

func (a *EmployeeAdapter) DepartmentStats(ctx context.Context) ([]domain.DepartmentStat, error) {
	var rows []struct {
		Department  string  `bson:"_id"`
		Count       int64   `bson:"count"`
		AvgSalary   float64 `bson:"avgSalary"`
		TotalSalary float64 `bson:"totalSalary"`
	}
	if err := a.aggregate(ctx, departmentStatsPipeline(), &rows); err != nil {
		return nil, fmt.Errorf("failed to aggregate department stats: %w", err)
	}

	stats := make([]domain.DepartmentStat, len(rows))
	for i, r := range rows {
		stats[i] = domain.DepartmentStat{Department: r.Department, Count: r.Count, AvgSalary: r.AvgSalary, TotalSalary: r.TotalSalary}
	}
	return stats, nil
}

func (a *EmployeeAdapter) StatusStats(ctx context.Context) ([]domain.StatusStat, error) {
	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := a.aggregate(ctx, statusStatsPipeline(), &rows); err != nil {
		return nil, fmt.Errorf("failed to aggregate status stats: %w", err)
	}

	stats := make([]domain.StatusStat, len(rows))
	for i, r := range rows {
		stats[i] = domain.StatusStat{Status: r.Status, Count: r.Count}
	}
	return stats, nil
}

func (a *EmployeeAdapter) aggregate(ctx context.Context, pipeline mongo.Pipeline, results any) error {
	cursor, err := a.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cursor.All(ctx, results)
}

// =============================================================================
// Maintenance
// =============================================================================

var missingEmployeeID = bson.M{"$or": bson.A{
	bson.M{"employeeId": bson.M{"$exists": false}},
	bson.M{"employeeId": nil},
	bson.M{"employeeId": ""},
}}

// FindWithoutEmployeeID returns records lacking an id, oldest first.
func (a *EmployeeAdapter) FindWithoutEmployeeID(ctx context.Context) ([]*domain.Employee, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := a.collection.Find(ctx, missingEmployeeID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find employees without id: %w", err)
	}
	return decodeEmployees(ctx, cursor)
}

func (a *EmployeeAdapter) AssignEmployeeID(ctx context.Context, id, employeeID string, seq int64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid employee id %q: %w", id, err)
	}
	update := bson.M{"$set": bson.M{"employeeId": employeeID, "employeeSeq": seq}}
	res, err := a.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return mapWriteError(fmt.Errorf("failed to assign employee id: %w", err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("employee %s not found", id)
	}
	return nil
}

func (a *EmployeeAdapter) DeleteAll(ctx context.Context) (int64, error) {
	res, err := a.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to delete employees: %w", err)
	}
	return res.DeletedCount, nil
}

// =============================================================================
// Conversion
// =============================================================================

func decodeEmployees(ctx context.Context, cursor *mongo.Cursor) ([]*domain.Employee, error) {
	defer cursor.Close(ctx)

	employees := make([]*domain.Employee, 0)
	for cursor.Next(ctx) {
		var doc employeeDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode employee: %w", err)
		}
		employees = append(employees, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return employees, nil
}

func toEmployeeDocument(e *domain.Employee) *employeeDocument {
	doc := &employeeDocument{
		EmployeeID:  e.EmployeeID,
		EmployeeSeq: e.EmployeeSeq,
		FirstName:   e.FirstName,
		LastName:    e.LastName,
		FullName:    e.DisplayName(),
		Email:       e.Email,
		Phone:       e.Phone,
		Department:  string(e.Department),
		Position:    e.Position,
		Salary:      e.Salary,
		Status:      string(e.Status),
		Photo:       e.Photo,
		HireDate:    e.HireDate,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if oid, err := primitive.ObjectIDFromHex(e.ID); err == nil {
		doc.ID = oid
	}
	doc.Address = toAddressDocument(e.Address)
	doc.EmergencyContact = toEmergencyContactDocument(e.EmergencyContact)
	if e.CreatedBy != nil {
		doc.CreatedBy = e.CreatedBy.ID
	}
	if e.UpdatedBy != nil {
		doc.UpdatedBy = e.UpdatedBy.ID
	}
	return doc
}

func toAddressDocument(a *domain.Address) *addressDocument {
	if a == nil {
		return nil
	}
	return &addressDocument{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode, Country: a.Country}
}

func toEmergencyContactDocument(c *domain.EmergencyContact) *emergencyContactDocument {
	if c == nil {
		return nil
	}
	return &emergencyContactDocument{Name: c.Name, Relationship: c.Relationship, Phone: c.Phone}
}

func (d *employeeDocument) toDomain() *domain.Employee {
	e := &domain.Employee{
		EmployeeID:  d.EmployeeID,
		EmployeeSeq: d.EmployeeSeq,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		FullName:    d.FullName,
		Email:       d.Email,
		Phone:       d.Phone,
		Department:  domain.Department(d.Department),
		Position:    d.Position,
		Salary:      d.Salary,
		Status:      domain.EmployeeStatus(d.Status),
		Photo:       d.Photo,
		HireDate:    d.HireDate.UTC(),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if !d.ID.IsZero() {
		e.ID = d.ID.Hex()
	}
	if d.Address != nil {
		e.Address = &domain.Address{
			Street:  d.Address.Street,
			City:    d.Address.City,
			State:   d.Address.State,
			ZipCode: d.Address.ZipCode,
			Country: d.Address.Country,
		}
	}
	if d.EmergencyContact != nil {
		e.EmergencyContact = &domain.EmergencyContact{
			Name:         d.EmergencyContact.Name,
			Relationship: d.EmergencyContact.Relationship,
			Phone:        d.EmergencyContact.Phone,
		}
	}
	if d.CreatedBy != "" {
		e.CreatedBy = &domain.UserRef{ID: d.CreatedBy}
	}
	if d.UpdatedBy != "" {
		e.UpdatedBy = &domain.UserRef{ID: d.UpdatedBy}
	}
	return e
}
