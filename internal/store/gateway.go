package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// Filter selects api-records for FindRecords.
type Filter struct {
	TimestampField string
	Since          time.Time
	Until          time.Time
	Method         string
	StatusMin      int
	StatusMax      int
	PathPattern    string
	Limit          int64
	Offset         int64
}

// CollectionNames configures the physical collection names backing the
// three logical collections.
type CollectionNames struct {
	Jobs      string
	Logs      string
	APILogs   string
}

// Gateway is the Record Store Gateway: typed access to jobs,
// processing-logs, and api-records over MongoDB.
type Gateway struct {
	db      *mongo.Database
	jobs    *mongo.Collection
	logs    *mongo.Collection
	records *mongo.Collection
	logger  *zap.Logger
}

// Connect dials uri and returns a Gateway bound to the given database
// and collection names.
func Connect(ctx context.Context, uri, dbName string, names CollectionNames, logger *zap.Logger) (*Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	db := client.Database(dbName)
	return &Gateway{
		db:      db,
		jobs:    db.Collection(names.Jobs),
		logs:    db.Collection(names.Logs),
		records: db.Collection(names.APILogs),
		logger:  logger,
	}, nil
}

// Ping verifies connectivity, satisfying diagnostics.GatewayPinger.
func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.Client().Ping(ctx, nil)
}

// Close disconnects the underlying client.
func (g *Gateway) Close(ctx context.Context) error {
	return g.db.Client().Disconnect(ctx)
}

// SaveRecord inserts rec into api-records and returns its id.
func (g *Gateway) SaveRecord(ctx context.Context, rec APIRecord) (string, error) {
	res, err := g.records.InsertOne(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("store: save record: %w", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprintf("%v", res.InsertedID), nil
}

// legacyTimestampFields is the fixed fallback list honored when no
// timestampField is configured; a record matches if any one field
// lies in range (logical OR).
var legacyTimestampFields = []string{"timestamp", "request_time", "createdAt", "created_at"}

func buildFilter(f Filter) bson.M {
	q := bson.M{}
	if !f.Since.IsZero() || !f.Until.IsZero() {
		q = mergeTimestampRange(f.TimestampField, f.Since, f.Until)
	}
	if f.Method != "" {
		q["method"] = f.Method
	}
	if f.StatusMin > 0 || f.StatusMax > 0 {
		rng := bson.M{}
		if f.StatusMin > 0 {
			rng["$gte"] = f.StatusMin
		}
		if f.StatusMax > 0 {
			rng["$lte"] = f.StatusMax
		}
		q["response_status"] = rng
	}
	if f.PathPattern != "" {
		q["path"] = bson.M{"$regex": f.PathPattern}
	}
	return q
}

func mergeTimestampRange(field string, since, until time.Time) bson.M {
	rng := bson.M{}
	if !since.IsZero() {
		rng["$gte"] = since
	}
	if !until.IsZero() {
		rng["$lt"] = until
	}
	if field != "" {
		return bson.M{field: rng}
	}
	// Legacy fallback: OR across the documented candidate fields.
	or := make(bson.A, 0, len(legacyTimestampFields))
	for _, candidate := range legacyTimestampFields {
		or = append(or, bson.M{candidate: rng})
	}
	return bson.M{"$or": or}
}

// FindRecords issues a single query against api-records per f and
// returns a finite, non-restartable sequence.
func (g *Gateway) FindRecords(ctx context.Context, f Filter) ([]APIRecord, error) {
	opts := options.Find()
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	if f.Offset > 0 {
		opts.SetSkip(f.Offset)
	}
	cur, err := g.records.Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("store: find records: %w", err)
	}
	defer cur.Close(ctx)
	var out []APIRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("store: decode records: %w", err)
	}
	return out, nil
}

// FindRecordsInWindow computes [start, end) UTC-normalized for
// (date, hourRange) and issues a single windowed query.
func (g *Gateway) FindRecordsInWindow(ctx context.Context, date, hourRange, timestampField string) ([]APIRecord, error) {
	start, end, err := WindowBounds(date, hourRange)
	if err != nil {
		return nil, err
	}
	return g.FindRecords(ctx, Filter{TimestampField: timestampField, Since: start, Until: end})
}

// CountRecordsInWindow returns the record count for the window without
// materializing the documents.
func (g *Gateway) CountRecordsInWindow(ctx context.Context, date, hourRange, timestampField string) (int64, error) {
	start, end, err := WindowBounds(date, hourRange)
	if err != nil {
		return 0, err
	}
	n, err := g.records.CountDocuments(ctx, mergeTimestampRange(timestampField, start, end))
	if err != nil {
		return 0, fmt.Errorf("store: count records: %w", err)
	}
	return n, nil
}

// UpsertJob idempotently ensures a Job row exists for date: returns the
// existing row unchanged, or creates one with 24 pending slots.
func (g *Gateway) UpsertJob(ctx context.Context, date string) (Job, error) {
	existing, err := g.LoadJob(ctx, date)
	if err != nil {
		return Job{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	job := NewJob(date, time.Now().UTC())
	if _, err := g.jobs.InsertOne(ctx, job); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			reloaded, reloadErr := g.LoadJob(ctx, date)
			if reloadErr != nil {
				return Job{}, reloadErr
			}
			if reloaded != nil {
				return *reloaded, nil
			}
		}
		return Job{}, fmt.Errorf("store: upsert job: %w", err)
	}
	return job, nil
}

// LoadJob returns the Job for date, or nil if none exists.
func (g *Gateway) LoadJob(ctx context.Context, date string) (*Job, error) {
	var job Job
	err := g.jobs.FindOne(ctx, bson.M{"date": date}).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load job: %w", err)
	}
	return &job, nil
}

// SlotMutator transforms the slot for hour in place; the gateway
// persists the result and recomputes the parent job status atomically
// with respect to other UpdateSlot calls on the same date.
type SlotMutator func(slot *Slot)

// UpdateSlot applies mutate to hours[hour] and re-derives job status,
// serializing concurrent mutations against the same date document.
func (g *Gateway) UpdateSlot(ctx context.Context, date string, hour int, mutate SlotMutator) (Job, error) {
	if hour < 0 || hour > 23 {
		return Job{}, fmt.Errorf("store: hour %d out of range", hour)
	}
	job, err := g.LoadJob(ctx, date)
	if err != nil {
		return Job{}, err
	}
	if job == nil {
		created, err := g.UpsertJob(ctx, date)
		if err != nil {
			return Job{}, err
		}
		job = &created
	}
	mutate(&job.Hours[hour])
	job.DeriveStatus()
	job.UpdatedAt = time.Now().UTC()

	_, err = g.jobs.ReplaceOne(ctx, bson.M{"date": date}, job)
	if err != nil {
		return Job{}, fmt.Errorf("store: update slot: %w", err)
	}
	return *job, nil
}

// AppendProcessingLog appends an observational row; never mutated
// thereafter.
func (g *Gateway) AppendProcessingLog(ctx context.Context, entry ProcessingLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if _, err := g.logs.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("store: append processing log: %w", err)
	}
	return nil
}

// GetProcessingLogs returns logs matching date (optional) and hourRange
// (optional), most recent first.
func (g *Gateway) GetProcessingLogs(ctx context.Context, date, hourRange string) ([]ProcessingLog, error) {
	q := bson.M{}
	if date != "" {
		q["date"] = date
	}
	if hourRange != "" {
		q["hour_range"] = hourRange
	}
	opts := options.Find().SetSort(bson.M{"timestamp": -1})
	cur, err := g.logs.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("store: get processing logs: %w", err)
	}
	defer cur.Close(ctx)
	var out []ProcessingLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("store: decode processing logs: %w", err)
	}
	return out, nil
}

// DeleteRecordsOlderThan deletes api-records with timestampField before
// cutoff, returning the count deleted (or that would be deleted, under
// dryRun).
func (g *Gateway) DeleteRecordsOlderThan(ctx context.Context, timestampField string, cutoff time.Time, dryRun bool) (int64, error) {
	field := timestampField
	if field == "" {
		field = "request_time"
	}
	q := bson.M{field: bson.M{"$lt": cutoff}}
	if dryRun {
		return g.records.CountDocuments(ctx, q)
	}
	res, err := g.records.DeleteMany(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("store: delete records: %w", err)
	}
	return res.DeletedCount, nil
}

// DeleteJobsOlderThan deletes jobs rows created before cutoff, except
// those with status==pending (outstanding work is never pruned).
func (g *Gateway) DeleteJobsOlderThan(ctx context.Context, cutoff time.Time, dryRun bool) (int64, error) {
	q := bson.M{
		"created_at": bson.M{"$lt": cutoff},
		"status":     bson.M{"$ne": string(JobPending)},
	}
	if dryRun {
		return g.jobs.CountDocuments(ctx, q)
	}
	res, err := g.jobs.DeleteMany(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("store: delete jobs: %w", err)
	}
	return res.DeletedCount, nil
}

// DeleteLogsOlderThan deletes processing-log rows older than cutoff.
func (g *Gateway) DeleteLogsOlderThan(ctx context.Context, cutoff time.Time, dryRun bool) (int64, error) {
	q := bson.M{"timestamp": bson.M{"$lt": cutoff}}
	if dryRun {
		return g.logs.CountDocuments(ctx, q)
	}
	res, err := g.logs.DeleteMany(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("store: delete logs: %w", err)
	}
	return res.DeletedCount, nil
}

// CountCollection returns {total, overAge} for stats reporting.
func (g *Gateway) CountCollection(ctx context.Context, name string, timestampField string, ttlCutoff time.Time) (total, overAge int64, err error) {
	var coll *mongo.Collection
	var field string
	switch name {
	case "apiLogs":
		coll, field = g.records, timestampField
		if field == "" {
			field = "request_time"
		}
	case "jobs":
		coll, field = g.jobs, "created_at"
	case "logs":
		coll, field = g.logs, "timestamp"
	default:
		return 0, 0, fmt.Errorf("store: unknown collection %q", name)
	}
	total, err = coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, 0, fmt.Errorf("store: count %s: %w", name, err)
	}
	overAge, err = coll.CountDocuments(ctx, bson.M{field: bson.M{"$lt": ttlCutoff}})
	if err != nil {
		return 0, 0, fmt.Errorf("store: count overage %s: %w", name, err)
	}
	return total, overAge, nil
}

// ListArchivedFilePaths returns the file_path of every succeeded slot.
func (g *Gateway) ListArchivedFilePaths(ctx context.Context) ([]string, error) {
	cur, err := g.jobs.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("store: list jobs: %w", err)
	}
	defer cur.Close(ctx)
	var paths []string
	for cur.Next(ctx) {
		var j Job
		if err := cur.Decode(&j); err != nil {
			return nil, fmt.Errorf("store: decode job: %w", err)
		}
		for _, s := range j.Hours {
			if s.Status == SlotSuccess && s.FilePath != "" {
				paths = append(paths, s.FilePath)
			}
		}
	}
	return paths, nil
}
