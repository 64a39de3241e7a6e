package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"procurement-backend/models"
)

var ErrProjectNotFound = errors.New("project not found")

// ProjectRepository persists projects as one JSON file under the data
// directory. Writes go through a temp file and rename so a crash never
// leaves a half-written file behind.
type ProjectRepository struct {
	mu      sync.Mutex
	dataDir string
}

// NewProjectRepository creates the repository and its data directory.
func NewProjectRepository(dataDir string) (*ProjectRepository, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &ProjectRepository{dataDir: dataDir}, nil
}

func (r *ProjectRepository) projectsFile() string {
	return filepath.Join(r.dataDir, "projects.json")
}

// Create stores a new project with a generated id.
func (r *ProjectRepository) Create(create models.ProjectCreate) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.load()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	project := models.Project{
		ID:          uuid.New().String(),
		Name:        create.Name,
		Description: create.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	projects = append(projects, project)

	if err := r.save(projects); err != nil {
		return nil, err
	}
	return &project, nil
}

// List returns all projects.
func (r *ProjectRepository) List() ([]models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Get returns one project by id.
func (r *ProjectRepository) Get(id string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].ID == id {
			return &projects[i], nil
		}
	}
	return nil, ErrProjectNotFound
}

// Delete removes a project and its products file.
func (r *ProjectRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.load()
	if err != nil {
		return err
	}

	kept := projects[:0]
	found := false
	for _, project := range projects {
		if project.ID == id {
			found = true
			continue
		}
		kept = append(kept, project)
	}
	if !found {
		return ErrProjectNotFound
	}

	if err := r.save(kept); err != nil {
		return err
	}

	// The project's line items live in their own file.
	productsFile := filepath.Join(r.dataDir, "products_"+id+".json")
	if err := os.Remove(productsFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove products file: %w", err)
	}
	return nil
}

func (r *ProjectRepository) load() ([]models.Project, error) {
	data, err := os.ReadFile(r.projectsFile())
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Project{}, nil
		}
		return nil, fmt.Errorf("read projects: %w", err)
	}

	var projects []models.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) save(projects []models.Project) error {
	return writeJSONFile(r.projectsFile(), projects)
}

// writeJSONFile writes v as indented JSON via a sibling temp file and an
// atomic rename.
func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
