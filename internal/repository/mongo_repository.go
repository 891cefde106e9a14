package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/incubatehub/compliance-api/internal/models"
)

// Mongo collection names.
const (
	ApplicationsCollection = "applications"
	ParticipantsCollection = "participants"
)

// MongoApplicationRepository stores applications with an embedded complianceDocuments array.
type MongoApplicationRepository struct {
	coll *mongo.Collection
}

// NewMongoApplicationRepository constructs the repository.
func NewMongoApplicationRepository(db *mongo.Database) *MongoApplicationRepository {
	return &MongoApplicationRepository{coll: db.Collection(ApplicationsCollection)}
}

// ListAccepted returns accepted applications for a company.
func (r *MongoApplicationRepository) ListAccepted(ctx context.Context, companyCode string) ([]models.Application, error) {
	return r.find(ctx, bson.M{"companyCode": companyCode, "applicationStatus": models.ApplicationStatusAccepted})
}

// ListByParticipant returns the accepted applications referencing a participant.
func (r *MongoApplicationRepository) ListByParticipant(ctx context.Context, companyCode, participantID string) ([]models.Application, error) {
	return r.find(ctx, bson.M{
		"companyCode":       companyCode,
		"participantId":     participantID,
		"applicationStatus": models.ApplicationStatusAccepted,
	})
}

func (r *MongoApplicationRepository) find(ctx context.Context, filter bson.M) ([]models.Application, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find applications: %w", err)
	}
	apps := make([]models.Application, 0)
	if err := cursor.All(ctx, &apps); err != nil {
		return nil, fmt.Errorf("decode applications: %w", err)
	}
	return apps, nil
}

// GetByID fetches one application.
func (r *MongoApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&app); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return &app, nil
}

// UpdateComplianceDocuments replaces the whole document array and bumps the revision.
// With expectedRevision >= 0 the write only applies when the stored revision matches;
// documents written before revisions existed count as revision 0.
func (r *MongoApplicationRepository) UpdateComplianceDocuments(ctx context.Context, id string, docs models.ComplianceDocumentList, expectedRevision int64) (int64, error) {
	filter := bson.M{"_id": id}
	if expectedRevision == 0 {
		filter["$or"] = bson.A{
			bson.M{"revision": int64(0)},
			bson.M{"revision": bson.M{"$exists": false}},
		}
	} else if expectedRevision > 0 {
		filter["revision"] = expectedRevision
	}
	if docs == nil {
		docs = models.ComplianceDocumentList{}
	}
	update := bson.M{
		"$set": bson.M{"complianceDocuments": docs, "updatedAt": time.Now().UTC()},
		"$inc": bson.M{"revision": int64(1)},
	}

	var updated models.Application
	err := r.coll.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err == nil {
		return updated.Revision, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("update compliance documents: %w", err)
	}

	count, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, fmt.Errorf("check application existence: %w", err)
	}
	if count == 0 {
		return 0, ErrApplicationNotFound
	}
	return 0, ErrRevisionConflict
}

// MongoParticipantRepository reads participant records from MongoDB.
type MongoParticipantRepository struct {
	coll *mongo.Collection
}

// NewMongoParticipantRepository constructs the repository.
func NewMongoParticipantRepository(db *mongo.Database) *MongoParticipantRepository {
	return &MongoParticipantRepository{coll: db.Collection(ParticipantsCollection)}
}

// ListByCompany returns every participant of a company.
func (r *MongoParticipantRepository) ListByCompany(ctx context.Context, companyCode string) ([]models.Participant, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"companyCode": companyCode})
	if err != nil {
		return nil, fmt.Errorf("find participants: %w", err)
	}
	participants := make([]models.Participant, 0)
	if err := cursor.All(ctx, &participants); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	return participants, nil
}

// GetByID fetches a single participant.
func (r *MongoParticipantRepository) GetByID(ctx context.Context, id string) (*models.Participant, error) {
	var participant models.Participant
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&participant); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return &participant, nil
}
