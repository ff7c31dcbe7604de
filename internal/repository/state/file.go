package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// filePermissions restricts the state file to the current user.
const filePermissions = 0o600

// AppState is the small amount of state kept between runs.
type AppState struct {
	// OnboardingCompleted gates the first-run introduction.
	OnboardingCompleted bool
	// LastSession describes the most recent tracking session, if any.
	LastSession *SessionRecord
	// UpdatedAt is when the state was last saved.
	UpdatedAt time.Time
}

// SessionRecord summarizes a finished tracking session.
type SessionRecord struct {
	LocationID   string
	LocationName string
	StartedAt    time.Time
	TriggeredAt  time.Time
	EndedAt      time.Time
	Triggers     uint64
	// Outcome is "acknowledged", "stopped", "blocked" or "failed".
	Outcome string
}

// Repository defines persistence operations for the application state.
type Repository interface {
	Load(ctx context.Context) (*AppState, error)
	Save(ctx context.Context, state *AppState) error
}

// FileRepository persists the state to a JSON file on disk.
// JSON is produced and consumed via protobuf JSON (protojson) of a
// well-known Struct so the file matches what the control API returns.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// ErrNotFound is returned when the state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the state from disk.
func (r *FileRepository) Load(_ context.Context) (*AppState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load()
}

// LoadOrDefault returns the stored state, or an empty one when none was saved.
func (r *FileRepository) LoadOrDefault(ctx context.Context) (*AppState, error) {
	state, err := r.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return &AppState{}, nil
	}

	return state, err
}

// Save writes the state to disk using JSON representation.
func (r *FileRepository) Save(_ context.Context, state *AppState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.save(state)
}

// Update applies mutate to the stored state and saves the result atomically
// with respect to other callers of this repository.
func (r *FileRepository) Update(_ context.Context, mutate func(*AppState)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load()
	if errors.Is(err, ErrNotFound) {
		state, err = &AppState{}, nil
	}

	if err != nil {
		return err
	}

	mutate(state)

	return r.save(state)
}

func (r *FileRepository) load() (*AppState, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var protoState structpb.Struct
	if err = protojson.Unmarshal(contents, &protoState); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return fromProto(&protoState), nil
}

func (r *FileRepository) save(state *AppState) error {
	stored := *state
	stored.UpdatedAt = time.Now().UTC()

	protoState, err := toProto(&stored)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
		Indent:    "  ",
	}

	data, err := marshalOptions.Marshal(protoState)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	if err = os.WriteFile(r.path, data, filePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	*state = stored

	return nil
}

// fromProto converts the stored Struct into the AppState model.
func fromProto(protoState *structpb.Struct) *AppState {
	fields := protoState.GetFields()

	state := &AppState{
		OnboardingCompleted: fields["onboarding_completed"].GetBoolValue(),
		UpdatedAt:           parseTime(fields["updated_at"].GetStringValue()),
	}

	if session := fields["last_session"].GetStructValue(); session != nil {
		sf := session.GetFields()
		state.LastSession = &SessionRecord{
			LocationID:   sf["location_id"].GetStringValue(),
			LocationName: sf["location_name"].GetStringValue(),
			StartedAt:    parseTime(sf["started_at"].GetStringValue()),
			TriggeredAt:  parseTime(sf["triggered_at"].GetStringValue()),
			EndedAt:      parseTime(sf["ended_at"].GetStringValue()),
			Triggers:     uint64(sf["triggers"].GetNumberValue()),
			Outcome:      sf["outcome"].GetStringValue(),
		}
	}

	return state
}

// toProto converts the AppState model into a Struct.
func toProto(state *AppState) (*structpb.Struct, error) {
	fields := map[string]any{
		"onboarding_completed": state.OnboardingCompleted,
		"updated_at":           formatTime(state.UpdatedAt),
	}

	if s := state.LastSession; s != nil {
		fields["last_session"] = map[string]any{
			"location_id":   s.LocationID,
			"location_name": s.LocationName,
			"started_at":    formatTime(s.StartedAt),
			"triggered_at":  formatTime(s.TriggeredAt),
			"ended_at":      formatTime(s.EndedAt),
			"triggers":      float64(s.Triggers),
			"outcome":       s.Outcome,
		}
	}

	return structpb.NewStruct(fields)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
