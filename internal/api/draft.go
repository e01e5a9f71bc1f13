package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DangLinWang11/tip-app-sub004/internal/draft"
	"github.com/DangLinWang11/tip-app-sub004/internal/middleware"
	"github.com/DangLinWang11/tip-app-sub004/internal/service"
)

// DraftHandler exposes the review wizard: one draft per user, mutated through
// small focused endpoints and submitted as a whole.
type DraftHandler struct {
	manager       *draft.Manager
	restaurants   *service.RestaurantService
	media         *service.MediaService
	submit        *service.SubmitService
	validator     middleware.TokenValidator
	uploadLimiter *middleware.RateLimiter
	submitLimiter *middleware.RateLimiter
}

func NewDraftHandler(
	manager *draft.Manager,
	restaurants *service.RestaurantService,
	media *service.MediaService,
	submit *service.SubmitService,
	validator middleware.TokenValidator,
	uploadLimiter *middleware.RateLimiter,
	submitLimiter *middleware.RateLimiter,
) *DraftHandler {
	return &DraftHandler{
		manager:       manager,
		restaurants:   restaurants,
		media:         media,
		submit:        submit,
		validator:     validator,
		uploadLimiter: uploadLimiter,
		submitLimiter: submitLimiter,
	}
}

func (h *DraftHandler) RegisterRoutes(router *gin.RouterGroup) {
	d := router.Group("/draft", middleware.AuthMiddleware(h.validator))
	{
		d.GET("", h.GetDraft)
		d.POST("/restaurant", h.SelectRestaurant)
		d.PUT("/visit", h.UpdateVisit)
		d.POST("/dishes", h.AddDish)
		d.DELETE("/dishes/:index", h.RemoveDish)
		d.PATCH("/dishes/:id", h.UpdateDish)
		d.POST("/dishes/:id/media/:mediaID", h.ToggleMedia)
		d.DELETE("/media/:id", h.RemoveMedia)
		d.POST("/step", h.Step)
		d.POST("/reset", h.Reset)

		if h.uploadLimiter != nil {
			d.POST("/media", h.uploadLimiter.RateLimitMiddleware(), h.UploadMedia)
		} else {
			d.POST("/media", h.UploadMedia)
		}
		if h.submitLimiter != nil {
			d.POST("/submit", h.submitLimiter.RateLimitMiddleware(), h.Submit)
		} else {
			d.POST("/submit", h.Submit)
		}
	}
}

// currentUser pulls the authenticated user id the auth middleware stored.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}
	userID, ok := v.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}
	return userID, true
}

func (h *DraftHandler) session(c *gin.Context) (*draft.Session, uuid.UUID, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return nil, uuid.Nil, false
	}
	return h.manager.Session(c.Request.Context(), userID.String()), userID, true
}

type draftResponse struct {
	Draft    draft.MultiDishCreateState `json:"draft"`
	Autosave draft.AutosaveState        `json:"autosave"`
}

func respondDraft(c *gin.Context, sess *draft.Session) {
	c.JSON(http.StatusOK, draftResponse{
		Draft:    sess.Snapshot(),
		Autosave: sess.Autosave(),
	})
}

func (h *DraftHandler) GetDraft(c *gin.Context) {
	sess, _, ok := h.session(c)
	if !ok {
		return
	}
	respondDraft(c, sess)
}

type SelectRestaurantRequest struct {
	RestaurantID string `json:"restaurant_id"`
	RestoreDraft bool   `json:"restore_draft"`
}

func (h *DraftHandler) SelectRestaurant(c *gin.Context) {
	sess, _, ok := h.session(c)
	if !ok {
		return
	}
	var req SelectRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.RestaurantID == "" {
		// Clearing the selection drops the draft back to the generic partition.
		sess.SelectRestaurant(c.Request.Context(), nil, false)
		respondDraft(c, sess)
		return
	}
	restaurantID, err := uuid.Parse(req.RestaurantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid restaurant id"})
		return
	}
	restaurant, err := h.restaurants.GetRestaurant(c.Request.Context(), restaurantID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		return
	}

	sess.SelectRestaurant(c.Request.Context(), &draft.RestaurantInfo{
		ID:       restaurant.ID.String(),
		Name:     restaurant.Name,
		Address:  restaurant.Address,
		Cuisines: []string(restaurant.Cuisines),
	}, req.RestoreDraft)
	respondDraft(c, sess)
}

type UpdateVisitRequest struct {
	MealTime        *string   `json:"meal_time"`
	ServiceSpeed    *string   `json:"service_speed"`
	PriceLevel      *string   `json:"price_level"`
	BusinessCaption *string   `json:"business_caption"`
	StandoutTags    *[]string `json:"standout_tags"`
}

func (h *DraftHandler) UpdateVisit(c *gin.Context) {
	sess, _, ok := h.session(c)
	if !ok {
		return
	}
	var req UpdateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	sess.UpdateVisit(func(v *draft.VisitDraft) {
		if req.MealTime != nil {
			v.MealTime = *req.MealTime
		}
		if req.ServiceSpeed != nil {
			v.ServiceSpeed = *req.ServiceSpeed
		}
		if req.PriceLevel != nil {
			v.PriceLevel = *req.PriceLevel
		}
		if req.BusinessCaption != nil {
			v.BusinessCaption = *req.BusinessCaption
		}
		if req.StandoutTags != nil {
			v.StandoutTags = *req.StandoutTags
		}
	})
	respondDraft(c, sess)
}

func (h *DraftHandler) AddDish(c *gin.Context) {
	sess, _, ok := h.session(c)
	if !ok {
		return
	}
	dish := sess.AddDish()
	c.JSON(http.StatusCreated, gin.H{"dish": dish, "draft": sess.Snapshot()})
}

func (h *DraftHandler) RemoveDish(c *gin.Context) {
	sess, _, ok := h.session(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dish index"})
		return
	}
	if err := sess.RemoveDish(index); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	respondDraft(c, sess)
}

type UpdateDishRequest struct {
	Name            *string   `json:"name"`
	Category        *string   `json:"category"`
	Cuisine         *string   `json:"cuisine"`
	Rating          *float64  `json:"rating"`
	Caption         *string   `json:"caption"`
	PricePerception *string   `json:"price_perception"`
	PositiveTags    *[]string `json:"positive_tags"`
	NegativeTags    *[]string `json:"negative_tags"`
	OrderAgain      *bool     `json:"order_again"`
	Recommend       *bool     `json:"recommend"`
	Audience        *[]string `json:"audience"`
	ReturnIntent    *string   `json:"return_intent"`
}

func (h *DraftHandler) UpdateDish(c *gin.Context) {
	sess, _, ok := h.session(c)
	if !ok {
		return
	}
	var req UpdateDishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	sess.UpdateDish(c.Param("id"), func(d *draft.DishDraft) {
		if req.Name != nil {
			d.Name = *req.Name
		}
		if req.Category != nil {
			d.Category = draft.DishCategory(*req.Category)
		}
		if req.Cuisine != nil {
			d.Cuisine = *req.Cuisine
		}
		if req.Rating != nil {
			d.Rating = *req.Rating
		}
		if req.Caption != nil {
			d.Caption = *req.Caption
		}
		if req.PricePerception != nil {
			d.PricePerception = *req.PricePerception
		}
		if req.PositiveTags != nil {
			d.PositiveTags = *req.PositiveTags
		}
		if req.NegativeTags != nil {
			d.NegativeTags = *req.NegativeTags
		}
		if req.OrderAgain != nil {
			d.OrderAgain = *req.OrderAgain
		}
		if req.Recommend != nil {
			d.Recommend = *req.Recommend
		}
		if req.Audience != nil {
			d.Audience = *req.Audience
		}
		if req.ReturnIntent != nil {
			d.ReturnIntent = draft.ReturnIntent(*req.ReturnIntent)
		}
	})
	respondDraft(c, sess)
}

func (h *DraftHandler) ToggleMedia(c *gin.Context) {
	sess, _, ok := h.session(c)
	if !ok {
		return
	}
	if err := sess.ToggleMediaForDish(c.Param("id"), c.Param("mediaID")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	respondDraft(c, sess)
}

func (h *DraftHandler) RemoveMedia(c *gin.Context) {
	sess, _, ok := h.session(c)
	if !ok {
		return
	}
	if err := sess.RemoveMedia(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	respondDraft(c, sess)
}

// UploadMedia accepts a multipart batch under the "files" field. Videos may
// carry a poster frame in "posters", matched by filename.
func (h *DraftHandler) UploadMedia(c *gin.Context) {
	sess, _, ok := h.session(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	posters := make(map[string][]byte)
	for _, ph := range form.File["posters"] {
		data, err := readFormFile(ph)
		if err != nil {
			continue
		}
		posters[ph.Filename] = data
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readFormFile(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
			return
		}
		files = append(files, service.UploadFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
			Poster:      posters[fh.Filename],
		})
	}

	ids := h.media.Upload(sess, files)
	c.JSON(http.StatusAccepted, gin.H{
		"media_ids": ids,
		"draft":     sess.Snapshot(),
	})
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

type StepRequest struct {
	Step      *int   `json:"step"`
	Direction string `json:"direction"`
}

func (h *DraftHandler) Step(c *gin.Context) {
	sess, _, ok := h.session(c)
	if !ok {
		return
	}
	var req StepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var step int
	switch {
	case req.Step != nil:
		step = sess.GoToStep(c.Request.Context(), *req.Step)
	case req.Direction == "next":
		step = sess.GoNext(c.Request.Context())
	case req.Direction == "back":
		step = sess.GoBack(c.Request.Context())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "step or direction is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"step": step, "draft": sess.Snapshot()})
}

type ResetRequest struct {
	KeepRestaurant bool `json:"keep_restaurant"`
}

func (h *DraftHandler) Reset(c *gin.Context) {
	sess, _, ok := h.session(c)
	if !ok {
		return
	}
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	sess.Reset(c.Request.Context(), req.KeepRestaurant)
	respondDraft(c, sess)
}

func (h *DraftHandler) Submit(c *gin.Context) {
	sess, userID, ok := h.session(c)
	if !ok {
		return
	}
	reviewIDs, err := h.submit.SubmitVisit(c.Request.Context(), userID, sess)
	if err != nil {
		status := http.StatusUnprocessableEntity
		switch err {
		case service.ErrMediaInFlight:
			status = http.StatusConflict
		case service.ErrNotAuthenticated:
			status = http.StatusUnauthorized
		}
		c.JSON(status, gin.H{"error": err.Error(), "review_ids": reviewIDs})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review_ids": reviewIDs})
}
