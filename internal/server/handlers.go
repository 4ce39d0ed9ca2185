package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/leadfunnel/internal/apperr"
	"github.com/sells-group/leadfunnel/internal/funnel"
)

const (
	accessTokenHeader = "api_access_token"
	defaultFilter     = "all"
)

// leadQuery holds the query parameters that need structural validation.
type leadQuery struct {
	AccountID string `query:"account_id" validate:"required,number"`
	Before    string `query:"before" validate:"omitempty,number"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLeadQualification(w http.ResponseWriter, r *http.Request) {
	token := accessToken(r)
	if token == "" {
		writeError(w, apperr.Validation("missing access token", apperr.Detail{
			Loc:  []string{"header", accessTokenHeader},
			Msg:  "field required",
			Type: "value_error.missing",
		}))
		return
	}

	q := r.URL.Query()
	in := leadQuery{AccountID: q.Get("account_id"), Before: q.Get("before")}
	if err := s.validate.Struct(in); err != nil {
		writeError(w, validationError(err))
		return
	}
	accountID, err := strconv.ParseInt(in.AccountID, 10, 64)
	if err != nil {
		writeError(w, apperr.Validation("account_id is out of range", apperr.Detail{
			Loc: []string{"query", "account_id"}, Msg: "value is not a valid integer", Type: "type_error.integer",
		}))
		return
	}

	teamIDs, err := s.teams.ParseIDs(q["team_id"])
	if err != nil {
		writeError(w, err)
		return
	}

	if s.cfg.HelpdeskBaseURL == "" {
		writeError(w, apperr.Configuration("helpdesk base URL is not configured"))
		return
	}

	req := funnel.FetchRequest{
		AccountID:    accountID,
		TeamIDs:      teamIDs,
		Status:       q.Get("status"),
		AssigneeType: q.Get("assignee_type"),
		Before:       in.Before,
		Token:        token,
	}
	if raw, _ := strconv.ParseBool(q.Get("raw")); !raw {
		if req.Status == "" {
			req.Status = defaultFilter
		}
		if req.AssigneeType == "" {
			req.AssigneeType = defaultFilter
		}
	}

	res, err := s.board.Run(r.Context(), req)
	if err != nil {
		zap.L().Error("server: board run failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}
	if !s.cfg.Debug {
		res.Debug = nil
	}
	writeJSON(w, http.StatusOK, res)
}

// accessToken reads the api_access_token header, falling back to a bearer
// Authorization header.
func accessToken(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(accessTokenHeader)); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// validationError converts validator errors into a validation apperr with one
// detail per failing field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}
	details := make([]apperr.Detail, 0, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		d := apperr.Detail{Loc: []string{"query", fe.Field()}}
		switch fe.Tag() {
		case "required":
			d.Msg, d.Type = "field required", "value_error.missing"
		case "number":
			d.Msg, d.Type = "value is not a valid integer", "type_error.integer"
		default:
			d.Msg, d.Type = fmt.Sprintf("failed %s validation", fe.Tag()), "value_error"
		}
		details = append(details, d)
		names = append(names, fe.Field())
	}
	return apperr.Validation("invalid query: "+strings.Join(names, ", "), details...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), apperr.ToBody(err))
}

// recoverJSON turns a handler panic into a 500 internal_error body.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				zap.L().Error("server: panic",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				writeError(w, fmt.Errorf("%v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
