package repository

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"ghostlore.app/models"
)

// GhostFilters narrows a catalog search
type GhostFilters struct {
	Categories      []string
	DangerLevel     *int
	CulturalContext string
	Tags            []string
	SortBy          string
	SortOrder       string
}

// GhostRepository handles data access operations for the ghost catalog
type GhostRepository struct {
	db *gorm.DB
}

// NewGhostRepository creates a new repository for catalog data
func NewGhostRepository(db *gorm.DB) *GhostRepository {
	return &GhostRepository{db: db}
}

// FindByID retrieves one catalog entry
func (r *GhostRepository) FindByID(id string) (*models.Ghost, error) {
	var ghost models.Ghost
	result := r.db.First(&ghost, "id = ?", id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &ghost, nil
}

// Search performs a filtered, paginated catalog search
func (r *GhostRepository) Search(query string, filters GhostFilters, page, limit int) (*models.PaginatedResult[models.Ghost], error) {
	q := r.db.Model(&models.Ghost{})

	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if len(filters.Categories) > 0 {
		q = q.Where("type IN ?", filters.Categories)
	}
	if filters.DangerLevel != nil {
		q = q.Where("danger_level = ?", *filters.DangerLevel)
	}
	if filters.CulturalContext != "" {
		q = q.Where("cultural_context = ?", filters.CulturalContext)
	}
	for _, tag := range filters.Tags {
		q = q.Where("tags LIKE ?", "%\""+tag+"\"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	order := sortClause(filters.SortBy, filters.SortOrder)

	var ghosts []models.Ghost
	if err := q.Order(order).Offset((page - 1) * limit).Limit(limit).Find(&ghosts).Error; err != nil {
		return nil, err
	}

	return paginate(ghosts, total, page, limit), nil
}

// FindByCategory retrieves one page of a category listing
func (r *GhostRepository) FindByCategory(category string, page, limit int) (*models.PaginatedResult[models.Ghost], error) {
	q := r.db.Model(&models.Ghost{}).Where("type = ?", category)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	var ghosts []models.Ghost
	if err := q.Order("name asc").Offset((page - 1) * limit).Limit(limit).Find(&ghosts).Error; err != nil {
		return nil, err
	}

	return paginate(ghosts, total, page, limit), nil
}

// FindRelated returns entries sharing the type of the given entry
func (r *GhostRepository) FindRelated(ghostID string, limit int) ([]models.Ghost, error) {
	ghost, err := r.FindByID(ghostID)
	if err != nil {
		return nil, err
	}

	var related []models.Ghost
	result := r.db.Where("type = ? AND id <> ?", ghost.Type, ghostID).
		Order("name asc").Limit(limit).Find(&related)
	if result.Error != nil {
		return nil, result.Error
	}
	return related, nil
}

// Create persists a new catalog entry
func (r *GhostRepository) Create(tx *gorm.DB, ghost *models.Ghost) error {
	if ghost.ID == "" {
		ghost.ID = uuid.New().String()
	}
	return tx.Create(ghost).Error
}

// Update modifies an existing catalog entry
func (r *GhostRepository) Update(tx *gorm.DB, ghost *models.Ghost) error {
	return tx.Save(ghost).Error
}

func sortClause(sortBy, sortOrder string) string {
	column := "name"
	switch sortBy {
	case "type":
		column = "type"
	case "dangerLevel":
		column = "danger_level"
	case "createdAt":
		column = "created_at"
	}
	direction := "asc"
	if sortOrder == "desc" {
		direction = "desc"
	}
	return column + " " + direction
}

func paginate[T any](data []T, total int64, page, limit int) *models.PaginatedResult[T] {
	totalPages := int(total) / limit
	if int(total)%limit != 0 {
		totalPages++
	}
	return &models.PaginatedResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// StoryRepository handles data access operations for stories
type StoryRepository struct {
	db *gorm.DB
}

// NewStoryRepository creates a new repository for story data
func NewStoryRepository(db *gorm.DB) *StoryRepository {
	return &StoryRepository{db: db}
}

// FindByID retrieves one story
func (r *StoryRepository) FindByID(id string) (*models.Story, error) {
	var story models.Story
	result := r.db.First(&story, "id = ?", id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &story, nil
}

// FindByGhost retrieves every story attached to a catalog entry
func (r *StoryRepository) FindByGhost(ghostID string) ([]models.Story, error) {
	var stories []models.Story
	result := r.db.Where("ghost_id = ?", ghostID).Order("created_at desc").Find(&stories)
	if result.Error != nil {
		return nil, result.Error
	}
	return stories, nil
}

// Create persists a new story
func (r *StoryRepository) Create(tx *gorm.DB, story *models.Story) error {
	if story.ID == "" {
		story.ID = uuid.New().String()
	}
	return tx.Create(story).Error
}

// Update modifies an existing story
func (r *StoryRepository) Update(tx *gorm.DB, story *models.Story) error {
	return tx.Save(story).Error
}

// Delete removes a story
func (r *StoryRepository) Delete(tx *gorm.DB, storyID string) error {
	return tx.Delete(&models.Story{}, "id = ?", storyID).Error
}
