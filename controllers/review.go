package controllers

import (
	"context"
	"net/http"

	"go-bakery/reviews"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ReviewController handles customer reviews
type ReviewController struct {
	Reviews *reviews.Service
	Logger  *zap.Logger
}

func NewReviewController(svc *reviews.Service, logger *zap.Logger) *ReviewController {
	return &ReviewController{Reviews: svc, Logger: logger}
}

// SubmitReview stores a review sent through an emailed link
func (rc *ReviewController) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var sub reviews.Submission
	if err := decodeJSON(r, &sub); err != nil {
		handleError(w, rc.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	review, err := rc.Reviews.Submit(ctx, sub)
	if err != nil {
		handleError(w, rc.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// PublicReviews lists approved reviews
func (rc *ReviewController) PublicReviews(w http.ResponseWriter, r *http.Request) {
	rc.list(w, r, true)
}

// AllReviews lists every review for moderation
func (rc *ReviewController) AllReviews(w http.ResponseWriter, r *http.Request) {
	rc.list(w, r, false)
}

func (rc *ReviewController) list(w http.ResponseWriter, r *http.Request, approvedOnly bool) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	list, err := rc.Reviews.List(ctx, approvedOnly)
	if err != nil {
		handleError(w, rc.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ApproveReview publishes a review
func (rc *ReviewController) ApproveReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := mux.Vars(r)["id"]
	if err := rc.Reviews.Approve(ctx, id); err != nil {
		handleError(w, rc.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Review approved", "id": id})
}
