package store

import (
	"datmo-go/internal/engine"
	"datmo-go/internal/model"
)

// Collection names. One logical collection per entity type.
const (
	collectionModel          = "model"
	collectionCodeRef        = "code"
	collectionFileCollection = "file_collection"
	collectionEnvironment    = "environment"
	collectionSnapshot       = "snapshot"
	collectionTask           = "task"
	collectionSession        = "session"
)

func queryInto[T any](s *Store, collection string, filter map[string]any) ([]*T, error) {
	docs, err := s.query(collection, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		entity := new(T)
		if err := fromDoc(doc, entity); err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

func getInto[T any](s *Store, collection, id string) (*T, error) {
	entity := new(T)
	if err := s.get(collection, id, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// Model operations.

func (s *Store) CreateModel(m *model.Model) error { return s.create(collectionModel, m) }
func (s *Store) GetModel(id string) (*model.Model, error) {
	return getInto[model.Model](s, collectionModel, id)
}
func (s *Store) UpdateModel(m *model.Model) error { return s.update(collectionModel, m) }
func (s *Store) DeleteModel(id string) error      { return s.delete(collectionModel, id) }
func (s *Store) QueryModels(filter map[string]any) ([]*model.Model, error) {
	return queryInto[model.Model](s, collectionModel, filter)
}

// CodeRef operations.

func (s *Store) CreateCodeRef(c *model.CodeRef) error { return s.create(collectionCodeRef, c) }
func (s *Store) GetCodeRef(id string) (*model.CodeRef, error) {
	return getInto[model.CodeRef](s, collectionCodeRef, id)
}
func (s *Store) DeleteCodeRef(id string) error { return s.delete(collectionCodeRef, id) }
func (s *Store) QueryCodeRefs(filter map[string]any) ([]*model.CodeRef, error) {
	return queryInto[model.CodeRef](s, collectionCodeRef, filter)
}

// FileCollection operations.

func (s *Store) CreateFileCollection(f *model.FileCollection) error {
	return s.create(collectionFileCollection, f)
}
func (s *Store) GetFileCollection(id string) (*model.FileCollection, error) {
	return getInto[model.FileCollection](s, collectionFileCollection, id)
}
func (s *Store) DeleteFileCollection(id string) error {
	return s.delete(collectionFileCollection, id)
}
func (s *Store) QueryFileCollections(filter map[string]any) ([]*model.FileCollection, error) {
	return queryInto[model.FileCollection](s, collectionFileCollection, filter)
}

// Environment operations.

func (s *Store) CreateEnvironment(e *model.Environment) error {
	return s.create(collectionEnvironment, e)
}
func (s *Store) GetEnvironment(id string) (*model.Environment, error) {
	return getInto[model.Environment](s, collectionEnvironment, id)
}
func (s *Store) DeleteEnvironment(id string) error { return s.delete(collectionEnvironment, id) }
func (s *Store) QueryEnvironments(filter map[string]any) ([]*model.Environment, error) {
	return queryInto[model.Environment](s, collectionEnvironment, filter)
}

// Snapshot operations.

func (s *Store) CreateSnapshot(snap *model.Snapshot) error { return s.create(collectionSnapshot, snap) }
func (s *Store) GetSnapshot(id string) (*model.Snapshot, error) {
	return getInto[model.Snapshot](s, collectionSnapshot, id)
}
func (s *Store) UpdateSnapshot(snap *model.Snapshot) error { return s.update(collectionSnapshot, snap) }
func (s *Store) DeleteSnapshot(id string) error            { return s.delete(collectionSnapshot, id) }
func (s *Store) QuerySnapshots(filter map[string]any) ([]*model.Snapshot, error) {
	return queryInto[model.Snapshot](s, collectionSnapshot, filter)
}

// Task operations.

func (s *Store) CreateTask(t *model.Task) error { return s.create(collectionTask, t) }
func (s *Store) GetTask(id string) (*model.Task, error) {
	return getInto[model.Task](s, collectionTask, id)
}
func (s *Store) UpdateTask(t *model.Task) error { return s.update(collectionTask, t) }
func (s *Store) DeleteTask(id string) error     { return s.delete(collectionTask, id) }
func (s *Store) QueryTasks(filter map[string]any) ([]*model.Task, error) {
	return queryInto[model.Task](s, collectionTask, filter)
}

// Session operations.

func (s *Store) CreateSession(sess *model.Session) error { return s.create(collectionSession, sess) }
func (s *Store) GetSession(id string) (*model.Session, error) {
	return getInto[model.Session](s, collectionSession, id)
}
func (s *Store) UpdateSession(sess *model.Session) error { return s.update(collectionSession, sess) }
func (s *Store) DeleteSession(id string) error           { return s.delete(collectionSession, id) }
func (s *Store) QuerySessions(filter map[string]any) ([]*model.Session, error) {
	return queryInto[model.Session](s, collectionSession, filter)
}

// Compile-time check that Store implements the engine's Store interface.
var _ engine.Store = (*Store)(nil)
