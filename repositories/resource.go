package repositories

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/snap-point/activity-engine/apperr"
	"github.com/snap-point/activity-engine/dbctx"
	"github.com/snap-point/activity-engine/logger"
	"github.com/snap-point/activity-engine/models"
)

// Origin is the engine's view of an originating resource, whatever table it lives in.
type Origin struct {
	Kind             models.ResourceKind `json:"kind"`
	ID               uint                `json:"id"`
	OwnerID          uint                `json:"ownerId"`
	PlaceID          *uint               `json:"placeId,omitempty"`
	Visibility       models.Visibility   `json:"visibility"`
	Media            []string            `json:"media,omitempty"`
	Title            string              `json:"title,omitempty"`
	Body             string              `json:"body,omitempty"`
	Rating           int                 `json:"rating,omitempty"`
	Recommend        bool                `json:"recommend,omitempty"`
	LinkedActivityID *uint               `json:"-"`
	CreatedAt        time.Time           `json:"createdAt"`
}

func (o *Origin) HasMedia() bool {
	return o != nil && len(o.Media) > 0
}

type originResolver func(db *gorm.DB, id uint) (*Origin, error)

// ResourceRepo reads the surrounding application's resources. The only writes are the
// activity back-link and the delete issued by the cascade.
type ResourceRepo interface {
	Load(dbc dbctx.Context, kind models.ResourceKind, id uint) (*Origin, error)
	LinkActivity(dbc dbctx.Context, kind models.ResourceKind, id, activityID uint) error
	Delete(dbc dbctx.Context, kind models.ResourceKind, id uint) error
	GetUser(dbc dbctx.Context, id uint) (*models.User, error)
	GetUsers(dbc dbctx.Context, ids []uint) (map[uint]*models.User, error)
	GetPlace(dbc dbctx.Context, id uint) (*models.Place, error)
}

type resourceRepo struct {
	db        *gorm.DB
	log       *logger.Logger
	resolvers map[models.ResourceKind]originResolver
}

func NewResourceRepo(db *gorm.DB, baseLog *logger.Logger) ResourceRepo {
	return &resourceRepo{
		db:  db,
		log: baseLog.With("repo", "ResourceRepo"),
		resolvers: map[models.ResourceKind]originResolver{
			models.ResourceReview:   loadReview,
			models.ResourceCheckIn:  loadCheckIn,
			models.ResourceHomemade: loadHomemade,
			models.ResourcePlace:    loadPlace,
			models.ResourceUser:     loadUser,
		},
	}
}

func (r *resourceRepo) Load(dbc dbctx.Context, kind models.ResourceKind, id uint) (*Origin, error) {
	resolve, ok := r.resolvers[kind]
	if !ok {
		return nil, apperr.Validationf("ResourceRepo.Load", "unknown resource kind %q", kind)
	}
	origin, err := resolve(dbc.DB(r.db), id)
	if err != nil {
		return nil, notFoundOr("ResourceRepo.Load", err)
	}
	return origin, nil
}

func loadReview(db *gorm.DB, id uint) (*Origin, error) {
	var rv models.Review
	if err := db.First(&rv, id).Error; err != nil {
		return nil, err
	}
	placeID := rv.PlaceID
	return &Origin{
		Kind:             models.ResourceReview,
		ID:               rv.ID,
		OwnerID:          rv.UserID,
		PlaceID:          &placeID,
		Visibility:       rv.Visibility,
		Media:            rv.Media,
		Body:             rv.Content,
		Rating:           rv.Rating,
		Recommend:        rv.Recommend,
		LinkedActivityID: rv.LinkedActivityID,
		CreatedAt:        rv.CreatedAt,
	}, nil
}

func loadCheckIn(db *gorm.DB, id uint) (*Origin, error) {
	var ci models.CheckIn
	if err := db.First(&ci, id).Error; err != nil {
		return nil, err
	}
	placeID := ci.PlaceID
	return &Origin{
		Kind:             models.ResourceCheckIn,
		ID:               ci.ID,
		OwnerID:          ci.UserID,
		PlaceID:          &placeID,
		Visibility:       ci.Visibility,
		Media:            ci.Media,
		Body:             ci.Caption,
		LinkedActivityID: ci.LinkedActivityID,
		CreatedAt:        ci.CreatedAt,
	}, nil
}

func loadHomemade(db *gorm.DB, id uint) (*Origin, error) {
	var h models.Homemade
	if err := db.First(&h, id).Error; err != nil {
		return nil, err
	}
	return &Origin{
		Kind:             models.ResourceHomemade,
		ID:               h.ID,
		OwnerID:          h.UserID,
		Visibility:       h.Visibility,
		Media:            h.Media,
		Title:            h.Title,
		Body:             h.Content,
		LinkedActivityID: h.LinkedActivityID,
		CreatedAt:        h.CreatedAt,
	}, nil
}

func loadPlace(db *gorm.DB, id uint) (*Origin, error) {
	var p models.Place
	if err := db.First(&p, id).Error; err != nil {
		return nil, err
	}
	placeID := p.ID
	origin := &Origin{
		Kind:       models.ResourcePlace,
		ID:         p.ID,
		PlaceID:    &placeID,
		Visibility: models.VisibilityPublic,
		Title:      p.Name,
		Body:       p.Description,
		CreatedAt:  p.CreatedAt,
	}
	if p.AddedByID != nil {
		origin.OwnerID = *p.AddedByID
	}
	if p.PlaceImage != "" {
		origin.Media = []string{p.PlaceImage}
	}
	return origin, nil
}

func loadUser(db *gorm.DB, id uint) (*Origin, error) {
	var u models.User
	if err := db.First(&u, id).Error; err != nil {
		return nil, err
	}
	origin := &Origin{
		Kind:       models.ResourceUser,
		ID:         u.ID,
		OwnerID:    u.ID,
		Visibility: models.VisibilityPublic,
		Title:      u.DisplayName(),
		CreatedAt:  u.CreatedAt,
	}
	if u.Avatar != "" {
		origin.Media = []string{u.Avatar}
	}
	return origin, nil
}

// LinkActivity records the activity id on resources that carry a back-link. Places and
// users have none, so it is a no-op for them.
func (r *resourceRepo) LinkActivity(dbc dbctx.Context, kind models.ResourceKind, id, activityID uint) error {
	var model interface{}
	switch kind {
	case models.ResourceReview:
		model = &models.Review{}
	case models.ResourceCheckIn:
		model = &models.CheckIn{}
	case models.ResourceHomemade:
		model = &models.Homemade{}
	case models.ResourcePlace, models.ResourceUser:
		return nil
	default:
		return apperr.Validationf("ResourceRepo.LinkActivity", "unknown resource kind %q", kind)
	}
	res := dbc.DB(r.db).Model(model).Where("id = ?", id).UpdateColumn("linked_activity_id", activityID)
	if res.Error != nil {
		return fmt.Errorf("link activity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("ResourceRepo.LinkActivity", "%s %d", kind, id)
	}
	return nil
}

func (r *resourceRepo) Delete(dbc dbctx.Context, kind models.ResourceKind, id uint) error {
	var model interface{}
	switch kind {
	case models.ResourceReview:
		model = &models.Review{}
	case models.ResourceCheckIn:
		model = &models.CheckIn{}
	case models.ResourceHomemade:
		model = &models.Homemade{}
	case models.ResourcePlace:
		model = &models.Place{}
	case models.ResourceUser:
		return apperr.Validationf("ResourceRepo.Delete", "users are not deleted through the activity engine")
	default:
		return apperr.Validationf("ResourceRepo.Delete", "unknown resource kind %q", kind)
	}
	res := dbc.DB(r.db).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", kind, res.Error)
	}
	return nil
}

func (r *resourceRepo) GetUser(dbc dbctx.Context, id uint) (*models.User, error) {
	var u models.User
	if err := dbc.DB(r.db).First(&u, id).Error; err != nil {
		return nil, notFoundOr("ResourceRepo.GetUser", err)
	}
	return &u, nil
}

func (r *resourceRepo) GetUsers(dbc dbctx.Context, ids []uint) (map[uint]*models.User, error) {
	out := make(map[uint]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []*models.User
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *resourceRepo) GetPlace(dbc dbctx.Context, id uint) (*models.Place, error) {
	var p models.Place
	if err := dbc.DB(r.db).First(&p, id).Error; err != nil {
		return nil, notFoundOr("ResourceRepo.GetPlace", err)
	}
	return &p, nil
}
