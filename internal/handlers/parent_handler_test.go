package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/services"
)

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return resp
}

func TestParentHandler_Login(t *testing.T) {
	tests := []struct {
		name        string
		apiKey      string
		body        string
		resolve     func(name, phone string) (*services.AggregationResult, error)
		wantStatus  int
		wantError   string
		wantPartial bool
	}{
		{
			name:       "missing api key",
			body:       `{"student_name":"Aarav","phone":"9876543210"}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong api key",
			apiKey:     "guess",
			body:       `{"student_name":"Aarav","phone":"9876543210"}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "match",
			apiKey: testAPIKey,
			body:   `{"student_name":"Aarav Sharma","phone":"9876543210"}`,
			resolve: func(name, phone string) (*services.AggregationResult, error) {
				return sampleResult(), nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "partial view",
			apiKey: testAPIKey,
			body:   `{"student_name":"Aarav Sharma","phone":"9876543210"}`,
			resolve: func(name, phone string) (*services.AggregationResult, error) {
				return sampleResult(models.FetchFees), nil
			},
			wantStatus:  http.StatusOK,
			wantPartial: true,
		},
		{
			name:   "missing fields",
			apiKey: testAPIKey,
			body:   `{"student_name":""}`,
			resolve: func(name, phone string) (*services.AggregationResult, error) {
				return nil, &services.ServiceError{Kind: services.ErrValidationFailed, Message: "Student name and phone number are required"}
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Student name and phone number are required",
		},
		{
			name:   "no match",
			apiKey: testAPIKey,
			body:   `{"student_name":"Zoya","phone":"9000000000"}`,
			resolve: func(name, phone string) (*services.AggregationResult, error) {
				return nil, &services.ServiceError{Kind: services.ErrNotFound, Message: "No student found with that name and phone number. Please check and try again."}
			},
			wantStatus: http.StatusNotFound,
			wantError:  "No student found with that name and phone number. Please check and try again.",
		},
		{
			name:       "malformed body",
			apiKey:     testAPIKey,
			body:       `{"student_name":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.parent.resolve = tt.resolve

			var headers []string
			if tt.apiKey != "" {
				headers = []string{"apikey", tt.apiKey}
			}
			w := ts.do(http.MethodPost, "/api/v1/parent/login", "", tt.body, headers...)
			assertStatus(t, w, tt.wantStatus)

			if tt.wantError != "" {
				if got := decodeError(t, w.Body.Bytes()).Error; got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
			}
			if got := w.Header().Get(partialDataHeader) == "true"; got != tt.wantPartial {
				t.Errorf("partial header = %v, want %v", got, tt.wantPartial)
			}
			if tt.wantStatus == http.StatusOK {
				var view models.ChildViewResponse
				if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
					t.Fatalf("decode view: %v", err)
				}
				if view.Student.ID != "stu-1" || view.Fees == nil {
					t.Errorf("view = %+v", view)
				}
				if tt.wantPartial && len(view.PartialFailures) != 1 {
					t.Errorf("partial_failures = %v", view.PartialFailures)
				}
			}
		})
	}
}

func TestParentHandler_Link(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		link       func(parentID, classID, name string) (*services.AggregationResult, error)
		wantStatus int
		wantError  string
	}{
		{name: "no token", wantStatus: http.StatusUnauthorized},
		{name: "bad token", token: "forged", wantStatus: http.StatusUnauthorized},
		{name: "teacher cannot link", token: teacherToken, wantStatus: http.StatusForbidden},
		{
			name:  "linked",
			token: parentToken,
			link: func(parentID, classID, name string) (*services.AggregationResult, error) {
				if classID != "class-5a" || name != "Aarav" {
					return nil, errors.New("unexpected arguments")
				}
				return sampleResult(), nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name:  "already linked",
			token: parentToken,
			link: func(parentID, classID, name string) (*services.AggregationResult, error) {
				return nil, &services.ServiceError{Kind: services.ErrAlreadyLinked, Message: "This student is already linked to a parent account."}
			},
			wantStatus: http.StatusConflict,
			wantError:  "This student is already linked to a parent account.",
		},
		{
			name:  "link failed",
			token: parentToken,
			link: func(parentID, classID, name string) (*services.AggregationResult, error) {
				return nil, &services.ServiceError{Kind: services.ErrLinkFailed, Message: "Could not link student. Contact admin.", Cause: errors.New("db")}
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Could not link student. Contact admin.",
		},
		{
			name:  "unexpected error hides details",
			token: parentToken,
			link: func(parentID, classID, name string) (*services.AggregationResult, error) {
				return nil, errors.New("pq: relation students does not exist")
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			ts.parent.link = tt.link

			w := ts.do(http.MethodPost, "/api/v1/parent/link", tt.token, `{"class_id":"class-5a","student_name":"Aarav"}`)
			assertStatus(t, w, tt.wantStatus)

			if tt.wantError != "" {
				if got := decodeError(t, w.Body.Bytes()).Error; got != tt.wantError {
					t.Errorf("error = %q, want %q", got, tt.wantError)
				}
			}
			if tt.wantStatus == http.StatusOK && ts.parent.lastParent != "parent-1" {
				t.Errorf("parent id = %q, want the token subject", ts.parent.lastParent)
			}
		})
	}
}

func TestParentHandler_Children(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.parent.children = func(parentID string) ([]models.Student, error) {
		return []models.Student{{ID: "stu-1", Name: "Aarav Sharma"}}, nil
	}
	ts.parent.childView = func(parentID, studentID string) (*services.AggregationResult, error) {
		if studentID != "stu-1" {
			return nil, &services.ServiceError{Kind: services.ErrForbidden, Message: "This student is not linked to your account."}
		}
		return sampleResult(), nil
	}

	w := ts.do(http.MethodGet, "/api/v1/parent/children", parentToken, "")
	assertStatus(t, w, http.StatusOK)
	var children []models.Student
	if err := json.Unmarshal(w.Body.Bytes(), &children); err != nil || len(children) != 1 {
		t.Fatalf("children = %s, %v", w.Body.String(), err)
	}

	assertStatus(t, ts.do(http.MethodGet, "/api/v1/parent/children/stu-1", parentToken, ""), http.StatusOK)
	assertStatus(t, ts.do(http.MethodGet, "/api/v1/parent/children/stu-2", parentToken, ""), http.StatusForbidden)
}
