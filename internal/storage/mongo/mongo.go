// Package mongo stores tutoring records and their collaborators in MongoDB.
// Record writes use optimistic concurrency on a version field.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tutoring-service/internal/models"
	"tutoring-service/internal/settlement"
	"tutoring-service/pkg/response"
)

const (
	queryTimeout  = 10 * time.Second
	updateRetries = 3
)

type Storage struct {
	client *mongo.Client

	tutoring    *mongo.Collection
	attendance  *mongo.Collection
	enrollments *mongo.Collection
	invoices    *mongo.Collection
	students    *mongo.Collection
}

func New(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "storage.mongo.New"

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	db := client.Database(database)
	s := &Storage{
		client:      client,
		tutoring:    db.Collection("tutoring"),
		attendance:  db.Collection("attendance"),
		enrollments: db.Collection("enrollments"),
		invoices:    db.Collection("settlement_invoices"),
		students:    db.Collection("students"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.tutoring.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "student_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("tutoring indexes: %w", err)
	}

	_, err = s.attendance.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "class_id", Value: 1}, {Key: "date", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("attendance indexes: %w", err)
	}

	return nil
}

func (s *Storage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// #### tutoring ####

type tutoringDoc struct {
	models.TutoringRecord `bson:",inline"`
	Version               int64 `bson:"version"`
}

func (s *Storage) CreateTutoring(ctx context.Context, rec *models.TutoringRecord) (string, error) {
	const op = "storage.mongo.CreateTutoring"

	doc := tutoringDoc{TutoringRecord: *rec.Clone(), Version: 1}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	if _, err := s.tutoring.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%s: %w", op, response.ErrConflict)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return doc.ID, nil
}

func (s *Storage) getTutoringDoc(ctx context.Context, id string) (*tutoringDoc, error) {
	var doc tutoringDoc
	err := s.tutoring.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, response.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (s *Storage) GetTutoring(ctx context.Context, id string) (*models.TutoringRecord, error) {
	const op = "storage.mongo.GetTutoring"

	doc, err := s.getTutoringDoc(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &doc.TutoringRecord, nil
}

func tutoringFilter(filter models.TutoringFilter) bson.M {
	q := bson.M{}

	switch {
	case filter.OnlyDeleted:
		q["deleted_at"] = bson.M{"$ne": nil}
	case !filter.IncludeDeleted:
		q["deleted_at"] = nil
	}
	if filter.Type != nil {
		q["type"] = *filter.Type
	}
	if filter.Status != nil {
		q["status"] = *filter.Status
	}
	if filter.StudentID != nil {
		q["student_id"] = *filter.StudentID
	}
	if filter.ClassID != nil {
		q["class_id"] = *filter.ClassID
	}

	return q
}

func (s *Storage) ListTutoring(ctx context.Context, filter models.TutoringFilter) ([]*models.TutoringRecord, error) {
	const op = "storage.mongo.ListTutoring"

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := s.tutoring.Find(ctx, tutoringFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var out []*models.TutoringRecord
	for cursor.Next(ctx) {
		var doc tutoringDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		rec := doc.TutoringRecord
		out = append(out, &rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// UpdateTutoring replaces the document only if its version is unchanged
// since it was read; a lost race re-reads and re-applies mutate.
func (s *Storage) UpdateTutoring(ctx context.Context, id string, mutate func(rec *models.TutoringRecord) error) (*models.TutoringRecord, error) {
	const op = "storage.mongo.UpdateTutoring"

	for attempt := 0; attempt < updateRetries; attempt++ {
		doc, err := s.getTutoringDoc(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if err := mutate(&doc.TutoringRecord); err != nil {
			return nil, err
		}

		version := doc.Version
		doc.ID = id
		doc.Version = version + 1

		res, err := s.tutoring.ReplaceOne(ctx, bson.M{"_id": id, "version": version}, doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if res.MatchedCount == 1 {
			return &doc.TutoringRecord, nil
		}
	}

	return nil, fmt.Errorf("%s: record %s changed concurrently: %w", op, id, response.ErrConflict)
}

// #### attendance ####

func (s *Storage) FindAttendance(ctx context.Context, studentID, classID, date string) (string, error) {
	const op = "storage.mongo.FindAttendance"

	var doc models.Attendance
	err := s.attendance.FindOne(ctx, bson.M{"student_id": studentID, "class_id": classID, "date": date}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return doc.ID, nil
}

func (s *Storage) SetAttendanceStatus(ctx context.Context, id string, status models.AttendanceStatus) error {
	const op = "storage.mongo.SetAttendanceStatus"

	res, err := s.attendance.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

// #### enrollments ####

func (s *Storage) ExtendCourse(ctx context.Context, studentID, classID string) error {
	const op = "storage.mongo.ExtendCourse"

	interval := bson.M{"$cond": bson.A{
		bson.M{"$gt": bson.A{"$session_interval_days", 0}},
		"$session_interval_days",
		models.DefaultSessionIntervalDays,
	}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"expected_end_date": bson.M{"$dateAdd": bson.M{
				"startDate": "$expected_end_date",
				"unit":      "day",
				"amount":    interval,
			}},
			"extended_sessions": bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$extended_sessions", 0}}, 1}},
		}}},
	}

	res, err := s.enrollments.UpdateOne(ctx, bson.M{"student_id": studentID, "class_id": classID}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

// #### invoices ####

type invoiceDoc struct {
	models.Invoice `bson:",inline"`
	Amount         primitive.Decimal128 `bson:"amount"`
}

func (s *Storage) FindInvoiceByStudentAndStatus(ctx context.Context, studentID string, status models.InvoiceStatus) (*models.Invoice, error) {
	const op = "storage.mongo.FindInvoiceByStudentAndStatus"

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var doc invoiceDoc
	err := s.invoices.FindOne(ctx, bson.M{"student_id": studentID, "status": status}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	inv := doc.Invoice
	amount, err := decimal.NewFromString(doc.Amount.String())
	if err == nil {
		inv.Amount = amount
	}

	return &inv, nil
}

// #### students ####

func (s *Storage) GetStudentSessions(ctx context.Context, studentID string) (*models.StudentSessions, error) {
	const op = "storage.mongo.GetStudentSessions"

	var doc struct {
		Attended   int `bson:"attendedSessions"`
		Registered int `bson:"registeredSessions"`
	}
	opts := options.FindOne().SetProjection(bson.M{"attendedSessions": 1, "registeredSessions": 1})

	err := s.students.FindOne(ctx, bson.M{"_id": studentID}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.StudentSessions{
		StudentID:          studentID,
		AttendedSessions:   doc.Attended,
		RegisteredSessions: doc.Registered,
	}, nil
}

// studentSet converts the patch fields to their stored BSON types.
func studentSet(patch settlement.StudentPatch) (bson.M, error) {
	set := bson.M{}
	for k, v := range patch.Fields() {
		set[k] = v
	}

	amount, err := primitive.ParseDecimal128(patch.BadDebt.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("bad debt amount: %w", err)
	}
	set["badDebtAmount"] = amount

	if patch.BadDebt.Date != nil {
		set["badDebtDate"] = patch.BadDebt.Date.UTC()
	}

	return set, nil
}

func (s *Storage) ApplyStudentPatch(ctx context.Context, studentID string, patch settlement.StudentPatch) error {
	const op = "storage.mongo.ApplyStudentPatch"

	set, err := studentSet(patch)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.students.UpdateOne(ctx, bson.M{"_id": studentID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}
