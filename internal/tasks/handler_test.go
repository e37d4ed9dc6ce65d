package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/database"
)

// fakeStore is an in-memory Store mirroring the SQL repository's tenant-join
// semantics: task access always resolves through the owning project's tenant.
type fakeStore struct {
	projectTenants map[uuid.UUID]uuid.UUID // project -> tenant
	userTenants    map[uuid.UUID]uuid.UUID // user -> tenant
	tasks          map[uuid.UUID]*models.Task
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projectTenants: make(map[uuid.UUID]uuid.UUID),
		userTenants:    make(map[uuid.UUID]uuid.UUID),
		tasks:          make(map[uuid.UUID]*models.Task),
	}
}

func (s *fakeStore) addProject(tenantID uuid.UUID) uuid.UUID {
	id := uuid.New()
	s.projectTenants[id] = tenantID
	return id
}

func (s *fakeStore) addUser(tenantID uuid.UUID) uuid.UUID {
	id := uuid.New()
	s.userTenants[id] = tenantID
	return id
}

// deleteProject removes a project and its tasks, mirroring the schema's
// ON DELETE CASCADE from projects to tasks.
func (s *fakeStore) deleteProject(projectID uuid.UUID) {
	delete(s.projectTenants, projectID)
	for id, task := range s.tasks {
		if task.ProjectID == projectID {
			delete(s.tasks, id)
		}
	}
}

func (s *fakeStore) inTenant(taskID, tenantID uuid.UUID) (*models.Task, bool) {
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, false
	}
	return task, s.projectTenants[task.ProjectID] == tenantID
}

func (s *fakeStore) List(_ context.Context, tenantID uuid.UUID, f Filters, skip, limit int) ([]models.Task, error) {
	list := []models.Task{}
	for _, task := range s.tasks {
		if s.projectTenants[task.ProjectID] != tenantID {
			continue
		}
		if f.ProjectID != nil && task.ProjectID != *f.ProjectID {
			continue
		}
		if f.Status != nil && task.Status != *f.Status {
			continue
		}
		list = append(list, *task)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	if skip > len(list) {
		skip = len(list)
	}
	list = list[skip:]
	if limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

func (s *fakeStore) Create(_ context.Context, tenantID uuid.UUID, p CreateParams) (*models.Task, error) {
	if s.projectTenants[p.ProjectID] != tenantID {
		return nil, database.ErrNotFound
	}
	if p.AssignedToID != nil && s.userTenants[*p.AssignedToID] != tenantID {
		return nil, database.ErrNotFound
	}
	task := &models.Task{
		ID: uuid.New(), Title: p.Title, Description: p.Description,
		Status: models.StatusTodo, Priority: p.Priority, DueDate: p.DueDate,
		ProjectID: p.ProjectID, AssignedToID: p.AssignedToID, CreatedByID: p.CreatorID,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.tasks[task.ID] = task
	return task, nil
}

func (s *fakeStore) Get(_ context.Context, tenantID, taskID uuid.UUID) (*models.Task, error) {
	task, ok := s.inTenant(taskID, tenantID)
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *task
	return &cp, nil
}

func (s *fakeStore) Update(_ context.Context, tenantID, taskID uuid.UUID, p UpdateParams) (*models.Task, error) {
	if p.AssignedToID != nil && s.userTenants[*p.AssignedToID] != tenantID {
		return nil, database.ErrNotFound
	}
	task, ok := s.inTenant(taskID, tenantID)
	if !ok {
		return nil, database.ErrNotFound
	}
	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Status != nil {
		task.Status = *p.Status
		if *p.Status == models.StatusDone {
			now := time.Now()
			task.CompletedAt = &now
		} else {
			task.CompletedAt = nil
		}
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	switch {
	case p.ClearDueDate:
		task.DueDate = nil
	case p.DueDate != nil:
		task.DueDate = p.DueDate
	}
	switch {
	case p.ClearAssignedTo:
		task.AssignedToID = nil
	case p.AssignedToID != nil:
		task.AssignedToID = p.AssignedToID
	}
	task.UpdatedAt = time.Now()
	cp := *task
	return &cp, nil
}

func (s *fakeStore) Delete(_ context.Context, tenantID, taskID uuid.UUID) error {
	_, ok := s.inTenant(taskID, tenantID)
	if !ok {
		return database.ErrNotFound
	}
	delete(s.tasks, taskID)
	return nil
}

func newTestRouter(store Store, user *models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, zap.NewNop())
	r := gin.New()
	asUser := func(c *gin.Context) { c.Set(middleware.ContextUser, user) }
	r.GET("/tasks", asUser, h.List)
	r.POST("/tasks", asUser, h.Create)
	r.GET("/tasks/:id", asUser, h.Get)
	r.PUT("/tasks/:id", asUser, h.Update)
	r.DELETE("/tasks/:id", asUser, h.Delete)
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeTask(t *testing.T, w *httptest.ResponseRecorder) models.Task {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var task models.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	return task
}

func memberOf(store *fakeStore, tenantID uuid.UUID) *models.User {
	return &models.User{ID: store.addUser(tenantID), TenantID: tenantID, Role: models.RoleUser, IsActive: true}
}

func TestCreateTask_Defaults(t *testing.T) {
	store := newFakeStore()
	acme := uuid.New()
	alice := memberOf(store, acme)
	project := store.addProject(acme)
	r := newTestRouter(store, alice)

	w := do(r, http.MethodPost, "/tasks", gin.H{
		"title":      "Write spec",
		"project_id": project,
		"priority":   "high",
	})
	require.Equal(t, http.StatusOK, w.Code)

	task := decodeTask(t, w)
	assert.Equal(t, "Write spec", task.Title)
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, alice.ID, task.CreatedByID)
}

func TestCreateTask_InvalidPriority(t *testing.T) {
	store := newFakeStore()
	acme := uuid.New()
	r := newTestRouter(store, memberOf(store, acme))

	w := do(r, http.MethodPost, "/tasks", gin.H{
		"title":      "Bad",
		"project_id": store.addProject(acme),
		"priority":   "critical",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, store.tasks)
}

func TestCreateTask_ForeignProjectIsNotFound(t *testing.T) {
	store := newFakeStore()
	acme, globex := uuid.New(), uuid.New()
	theirProject := store.addProject(globex)
	r := newTestRouter(store, memberOf(store, acme))

	w := do(r, http.MethodPost, "/tasks", gin.H{"title": "Sneaky", "project_id": theirProject})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, store.tasks)
}

func TestCreateTask_ForeignAssigneeIsNotFound(t *testing.T) {
	store := newFakeStore()
	acme, globex := uuid.New(), uuid.New()
	project := store.addProject(acme)
	outsider := store.addUser(globex)
	r := newTestRouter(store, memberOf(store, acme))

	w := do(r, http.MethodPost, "/tasks", gin.H{
		"title":          "Sneaky",
		"project_id":     project,
		"assigned_to_id": outsider,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, store.tasks, "no task row may be created")
}

func TestUpdateTask_PartialUpdate(t *testing.T) {
	store := newFakeStore()
	acme := uuid.New()
	alice := memberOf(store, acme)
	project := store.addProject(acme)
	assignee := store.addUser(acme)

	task, err := store.Create(context.Background(), acme, CreateParams{
		ProjectID: project, Title: "Write spec", Priority: models.PriorityHigh,
		AssignedToID: &assignee, CreatorID: alice.ID,
	})
	require.NoError(t, err)

	r := newTestRouter(store, alice)
	w := do(r, http.MethodPut, "/tasks/"+task.ID.String(), gin.H{"status": "in_progress"})
	require.Equal(t, http.StatusOK, w.Code)

	got := decodeTask(t, w)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Equal(t, "Write spec", got.Title)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	require.NotNil(t, got.AssignedToID)
	assert.Equal(t, assignee, *got.AssignedToID)
}

func TestUpdateTask_ExplicitNullClearsNullableFields(t *testing.T) {
	store := newFakeStore()
	acme := uuid.New()
	alice := memberOf(store, acme)
	assignee := store.addUser(acme)
	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	task, err := store.Create(context.Background(), acme, CreateParams{
		ProjectID: store.addProject(acme), Title: "Write spec", Priority: models.PriorityHigh,
		DueDate: &due, AssignedToID: &assignee, CreatorID: alice.ID,
	})
	require.NoError(t, err)

	r := newTestRouter(store, alice)

	// Absent fields leave assignment and due date untouched.
	got := decodeTask(t, do(r, http.MethodPut, "/tasks/"+task.ID.String(), gin.H{"title": "Renamed"}))
	require.NotNil(t, got.AssignedToID)
	require.NotNil(t, got.DueDate)

	// An explicit null clears them.
	got = decodeTask(t, do(r, http.MethodPut, "/tasks/"+task.ID.String(), gin.H{
		"assigned_to_id": nil,
		"due_date":       nil,
	}))
	assert.Nil(t, got.AssignedToID)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, "Renamed", got.Title)
}

func TestUpdateTask_DoneStampsCompletedAt(t *testing.T) {
	store := newFakeStore()
	acme := uuid.New()
	alice := memberOf(store, acme)
	task, err := store.Create(context.Background(), acme, CreateParams{
		ProjectID: store.addProject(acme), Title: "Finish", Priority: models.PriorityLow, CreatorID: alice.ID,
	})
	require.NoError(t, err)

	r := newTestRouter(store, alice)
	got := decodeTask(t, do(r, http.MethodPut, "/tasks/"+task.ID.String(), gin.H{"status": "done"}))
	require.NotNil(t, got.CompletedAt)

	got = decodeTask(t, do(r, http.MethodPut, "/tasks/"+task.ID.String(), gin.H{"status": "todo"}))
	assert.Nil(t, got.CompletedAt)
}

func TestUpdateTask_ForeignAssigneeIsNotFound(t *testing.T) {
	store := newFakeStore()
	acme, globex := uuid.New(), uuid.New()
	alice := memberOf(store, acme)
	task, err := store.Create(context.Background(), acme, CreateParams{
		ProjectID: store.addProject(acme), Title: "Mine", Priority: models.PriorityMedium, CreatorID: alice.ID,
	})
	require.NoError(t, err)

	outsider := store.addUser(globex)
	r := newTestRouter(store, alice)
	w := do(r, http.MethodPut, "/tasks/"+task.ID.String(), gin.H{"assigned_to_id": outsider})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Nil(t, store.tasks[task.ID].AssignedToID)
}

func TestTask_CrossTenantAccessIsNotFound(t *testing.T) {
	store := newFakeStore()
	acme, globex := uuid.New(), uuid.New()
	owner := memberOf(store, acme)
	task, err := store.Create(context.Background(), acme, CreateParams{
		ProjectID: store.addProject(acme), Title: "Private", Priority: models.PriorityMedium, CreatorID: owner.ID,
	})
	require.NoError(t, err)

	outsider := newTestRouter(store, memberOf(store, globex))
	assert.Equal(t, http.StatusNotFound, do(outsider, http.MethodGet, "/tasks/"+task.ID.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(outsider, http.MethodPut, "/tasks/"+task.ID.String(), gin.H{"title": "stolen"}).Code)
	assert.Equal(t, http.StatusNotFound, do(outsider, http.MethodDelete, "/tasks/"+task.ID.String(), nil).Code)
	assert.Equal(t, "Private", store.tasks[task.ID].Title)
}

func TestListTasks_FiltersAndIsolation(t *testing.T) {
	store := newFakeStore()
	acme, globex := uuid.New(), uuid.New()
	alice := memberOf(store, acme)
	bob := memberOf(store, globex)
	p1 := store.addProject(acme)
	p2 := store.addProject(acme)
	p3 := store.addProject(globex)

	mk := func(tenant, project uuid.UUID, creator uuid.UUID, title string, status models.TaskStatus) {
		task, err := store.Create(context.Background(), tenant, CreateParams{
			ProjectID: project, Title: title, Priority: models.PriorityMedium, CreatorID: creator,
		})
		require.NoError(t, err)
		if status != models.StatusTodo {
			_, err = store.Update(context.Background(), tenant, task.ID, UpdateParams{Status: &status})
			require.NoError(t, err)
		}
	}
	mk(acme, p1, alice.ID, "a1-todo", models.StatusTodo)
	mk(acme, p1, alice.ID, "a1-done", models.StatusDone)
	mk(acme, p2, alice.ID, "a2-todo", models.StatusTodo)
	mk(globex, p3, bob.ID, "b3-todo", models.StatusTodo)

	r := newTestRouter(store, alice)

	w := do(r, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "b3-todo")

	w = do(r, http.MethodGet, "/tasks?project_id="+p1.String()+"&status=todo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a1-todo")
	assert.NotContains(t, w.Body.String(), "a1-done")
	assert.NotContains(t, w.Body.String(), "a2-todo")
}

func TestDeleteProject_CascadesToTasks(t *testing.T) {
	store := newFakeStore()
	acme := uuid.New()
	alice := memberOf(store, acme)
	project := store.addProject(acme)
	task, err := store.Create(context.Background(), acme, CreateParams{
		ProjectID: project, Title: "Doomed", Priority: models.PriorityMedium, CreatorID: alice.ID,
	})
	require.NoError(t, err)

	store.deleteProject(project)

	r := newTestRouter(store, alice)
	w := do(r, http.MethodGet, "/tasks?project_id="+project.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/tasks/"+task.ID.String(), nil).Code)
	assert.Empty(t, store.tasks)
}

func TestDeleteTask(t *testing.T) {
	store := newFakeStore()
	acme := uuid.New()
	alice := memberOf(store, acme)
	task, err := store.Create(context.Background(), acme, CreateParams{
		ProjectID: store.addProject(acme), Title: "Old", Priority: models.PriorityLow, CreatorID: alice.ID,
	})
	require.NoError(t, err)

	r := newTestRouter(store, alice)
	w := do(r, http.MethodDelete, "/tasks/"+task.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deleted successfully")
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/tasks/"+task.ID.String(), nil).Code)
}
