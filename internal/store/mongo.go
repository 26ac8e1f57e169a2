package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/xiy/taskbridge/pkg/types"
)

const (
	usersCollection    = "users"
	tasksCollection    = "tasks"
	requestsCollection = "bridge_requests"
)

// accountProjection keeps the password hash out of every account read.
var accountProjection = bson.M{"hashed_password": 0}

// MongoStore is a MongoDB-backed Store.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger *log.Logger
}

// OpenMongo connects to MongoDB, verifies the connection with a ping and
// returns the store. The caller owns the connection lifecycle.
func OpenMongo(ctx context.Context, uri, dbName string, logger *log.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Debug("connected to mongodb", "database", dbName)
	return &MongoStore{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}, nil
}

// Mongo stores _id as an ObjectID; the rest of the codebase works with the
// hex form, so documents are decoded through these intermediates.
type accountDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Username  string             `bson:"username"`
	Email     string             `bson:"email"`
	FullName  string             `bson:"full_name,omitempty"`
	Active    bool               `bson:"is_active"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d accountDoc) toAccount() types.Account {
	return types.Account{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		Email:     d.Email,
		FullName:  d.FullName,
		Active:    d.Active,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type workItemDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	Status      string             `bson:"status"`
	Priority    string             `bson:"priority"`
	DueDate     *time.Time         `bson:"due_date,omitempty"`
	CreatedBy   string             `bson:"created_by"`
	AssignedTo  []string           `bson:"assigned_to,omitempty"`
	Tags        []string           `bson:"tags,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
	CompletedAt *time.Time         `bson:"completed_at,omitempty"`
}

func (d workItemDoc) toWorkItem() types.WorkItem {
	return types.WorkItem{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Status:      types.Status(d.Status),
		Priority:    types.Priority(d.Priority),
		DueDate:     d.DueDate,
		CreatedBy:   d.CreatedBy,
		AssignedTo:  d.AssignedTo,
		Tags:        d.Tags,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		CompletedAt: d.CompletedAt,
	}
}

func (s *MongoStore) AccountByID(ctx context.Context, id string) (types.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.Account{}, fmt.Errorf("invalid account id %q: %w", id, err)
	}
	return s.findAccount(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) AccountByUsername(ctx context.Context, username string) (types.Account, error) {
	return s.findAccount(ctx, bson.M{"username": username})
}

func (s *MongoStore) findAccount(ctx context.Context, filter bson.M) (types.Account, error) {
	var doc accountDoc
	err := s.db.Collection(usersCollection).
		FindOne(ctx, filter, options.FindOne().SetProjection(accountProjection)).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, fmt.Errorf("find account: %w", err)
	}
	return doc.toAccount(), nil
}

func (s *MongoStore) ListAccounts(ctx context.Context, limit int) ([]types.Account, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(clampLimit(limit)).
		SetProjection(accountProjection)
	cur, err := s.db.Collection(usersCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []accountDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	accounts := make([]types.Account, 0, len(docs))
	for _, d := range docs {
		accounts = append(accounts, d.toAccount())
	}
	return accounts, nil
}

func (s *MongoStore) WorkItemByID(ctx context.Context, id string) (types.WorkItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.WorkItem{}, fmt.Errorf("invalid task id %q: %w", id, err)
	}
	var doc workItemDoc
	err = s.db.Collection(tasksCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.WorkItem{}, ErrNotFound
		}
		return types.WorkItem{}, fmt.Errorf("find task: %w", err)
	}
	return doc.toWorkItem(), nil
}

func (s *MongoStore) ListWorkItems(ctx context.Context, limit int) ([]types.WorkItem, error) {
	return s.findWorkItems(ctx, bson.M{}, limit)
}

func (s *MongoStore) WorkItemsForAccount(ctx context.Context, accountID string, limit int) ([]types.WorkItem, error) {
	return s.findWorkItems(ctx, involvementFilter(accountID), limit)
}

func (s *MongoStore) WorkItemsByStatus(ctx context.Context, status types.Status, limit int) ([]types.WorkItem, error) {
	return s.findWorkItems(ctx, statusFilter(status), limit)
}

func (s *MongoStore) WorkItemsByPriority(ctx context.Context, priority types.Priority, limit int) ([]types.WorkItem, error) {
	return s.findWorkItems(ctx, priorityFilter(priority), limit)
}

func (s *MongoStore) SearchWorkItems(ctx context.Context, term string, limit int) ([]types.WorkItem, error) {
	return s.findWorkItems(ctx, searchFilter(term), limit)
}

func (s *MongoStore) findWorkItems(ctx context.Context, filter bson.M, limit int) ([]types.WorkItem, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(clampLimit(limit))
	cur, err := s.db.Collection(tasksCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer cur.Close(ctx)

	var docs []workItemDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	items := make([]types.WorkItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toWorkItem())
	}
	return items, nil
}

func (s *MongoStore) DatabaseStats(ctx context.Context) (types.DatabaseStats, error) {
	stats := types.DatabaseStats{
		ByStatus:   map[types.Status]int64{},
		ByPriority: map[types.Priority]int64{},
	}

	users := s.db.Collection(usersCollection)
	tasks := s.db.Collection(tasksCollection)

	userCount, err := users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return stats, fmt.Errorf("count users: %w", err)
	}
	stats.UserCount = userCount

	taskCount, err := tasks.CountDocuments(ctx, bson.M{})
	if err != nil {
		return stats, fmt.Errorf("count tasks: %w", err)
	}
	stats.TaskCount = taskCount

	statusCounts, err := s.groupCounts(ctx, "status", nil)
	if err != nil {
		return stats, err
	}
	for k, v := range statusCounts {
		stats.ByStatus[types.Status(k)] = v
	}

	priorityCounts, err := s.groupCounts(ctx, "priority", nil)
	if err != nil {
		return stats, err
	}
	for k, v := range priorityCounts {
		stats.ByPriority[types.Priority(k)] = v
	}

	recentOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(5).
		SetProjection(bson.M{"title": 1, "status": 1, "created_at": 1})
	cur, err := tasks.Find(ctx, bson.M{}, recentOpts)
	if err != nil {
		return stats, fmt.Errorf("recent tasks: %w", err)
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &stats.RecentItems); err != nil {
		return stats, fmt.Errorf("decode recent tasks: %w", err)
	}

	return stats, nil
}

func (s *MongoStore) AccountStats(ctx context.Context, accountID string) (types.AccountStats, error) {
	stats := types.AccountStats{
		AccountID: accountID,
		ByStatus:  map[types.Status]int64{},
	}

	tasks := s.db.Collection(tasksCollection)

	created, err := tasks.CountDocuments(ctx, bson.M{"created_by": accountID})
	if err != nil {
		return stats, fmt.Errorf("count created tasks: %w", err)
	}
	stats.CreatedCount = created

	assigned, err := tasks.CountDocuments(ctx, bson.M{"assigned_to": accountID})
	if err != nil {
		return stats, fmt.Errorf("count assigned tasks: %w", err)
	}
	stats.AssignedCount = assigned

	statusCounts, err := s.groupCounts(ctx, "status", involvementFilter(accountID))
	if err != nil {
		return stats, err
	}
	for k, v := range statusCounts {
		stats.ByStatus[types.Status(k)] = v
	}

	return stats, nil
}

func (s *MongoStore) groupCounts(ctx context.Context, field string, match bson.M) (map[string]int64, error) {
	cur, err := s.db.Collection(tasksCollection).Aggregate(ctx, groupByCountPipeline(field, match))
	if err != nil {
		return nil, fmt.Errorf("group by %s: %w", field, err)
	}
	defer cur.Close(ctx)

	counts := map[string]int64{}
	for cur.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode group row: %w", err)
		}
		counts[row.ID] = row.Count
	}
	return counts, cur.Err()
}

// InsertRequestLog stores one request event for admin observability.
func (s *MongoStore) InsertRequestLog(ctx context.Context, rec RequestLog) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.Collection(requestsCollection).InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

// RecentRequestLogs returns the most recent request events, newest first.
func (s *MongoStore) RecentRequestLogs(ctx context.Context, limit int) ([]RequestLog, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.db.Collection(requestsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list request logs: %w", err)
	}
	defer cur.Close(ctx)

	var rows []RequestLog
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode request logs: %w", err)
	}
	return rows, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(pingCtx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
