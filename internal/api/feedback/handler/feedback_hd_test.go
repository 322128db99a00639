package feedbackHandler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"PanoGuard/internal/api/feedback"
	"PanoGuard/internal/entity"
	"PanoGuard/internal/middleware"
	jwtPkg "PanoGuard/pkg/jwt"
	"PanoGuard/pkg/postprocess"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type fakeService struct {
	created feedback.CreateFeedbackRequest
	updated feedback.UpdateFeedbackRequest
	err     error
}

func (f *fakeService) CreateFeedback(_ context.Context, req feedback.CreateFeedbackRequest) (feedback.FeedbackResponse, error) {
	f.created = req
	return feedback.FeedbackResponse{ID: "01HZZFB", DetectionID: req.DetectionID, Label: req.Label, Agree: *req.Agree}, f.err
}

func (f *fakeService) ListFeedback(context.Context, string, string) (feedback.ListFeedbackResponse, error) {
	return feedback.ListFeedbackResponse{Items: []feedback.FeedbackResponse{}}, f.err
}

func (f *fakeService) UpdateFeedback(_ context.Context, req feedback.UpdateFeedbackRequest) (feedback.FeedbackResponse, error) {
	f.updated = req
	return feedback.FeedbackResponse{ID: req.ID}, f.err
}

func (f *fakeService) DeleteFeedback(context.Context, string, string) error { return f.err }

func (f *fakeService) Summary(context.Context, string) (feedback.SummaryResponse, error) {
	return feedback.SummaryResponse{
		Labels:   []entity.LabelAgreement{{Label: "chin_high", Agree: 2, Disagree: 1}},
		Agree:    2,
		Disagree: 1,
	}, f.err
}

func newTestApp(t *testing.T, svc *fakeService) (*fiber.App, string) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv(jwtPkg.AccessTokenSecret, "feedback-secret")

	log := logrus.New()
	log.SetOutput(io.Discard)

	v := validator.New()
	require.NoError(t, v.RegisterValidation("poslabel", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "" || postprocess.IsLabel(fl.Field().String())
	}))

	mw := middleware.New(log, 1000, 1000)
	app := fiber.New()
	New(log, v, mw, svc).Start(app.Group("/api/v1"))

	token, _, err := jwtPkg.Sign(map[string]interface{}{
		"id":    "01HZZPROFILE0000000000000A",
		"email": "dr@clinic.test",
	}, time.Hour)
	require.NoError(t, err)
	return app, token
}

func send(t *testing.T, app *fiber.App, method, target, body, token string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, jsoniter.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestCreateFeedback(t *testing.T) {
	svc := &fakeService{}
	app, token := newTestApp(t, svc)

	status, body := send(t, app, http.MethodPost, "/api/v1/detections/01HZZDET/feedback", `{"label":"chin_high","agree":false}`, token)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "chin_high", body["label"])
	require.Equal(t, "01HZZDET", svc.created.DetectionID)
	require.Equal(t, "01HZZPROFILE0000000000000A", svc.created.ProfileID)
	require.NotNil(t, svc.created.Agree)
	require.False(t, *svc.created.Agree)
}

func TestCreateFeedbackValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "unknown label", body: `{"label":"crooked","agree":true}`},
		{name: "missing agree", body: `{"label":"chin_low"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app, token := newTestApp(t, &fakeService{})
			status, body := send(t, app, http.MethodPost, "/api/v1/detections/01HZZDET/feedback", tc.body, token)
			require.Equal(t, http.StatusBadRequest, status)
			require.Equal(t, "VALIDATION_ERROR", body["code"])
		})
	}
}

func TestFeedbackErrorsAreMapped(t *testing.T) {
	app, token := newTestApp(t, &fakeService{err: feedback.ErrFeedbackNotOwned})

	status, body := send(t, app, http.MethodPut, "/api/v1/feedback/01HZZFB", `{"agree":true}`, token)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "FEEDBACK_NOT_OWNED", body["code"])

	app, token = newTestApp(t, &fakeService{err: feedback.ErrDuplicateFeedback})
	status, body = send(t, app, http.MethodPost, "/api/v1/detections/01HZZDET/feedback", `{"agree":true}`, token)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "DUPLICATE_FEEDBACK", body["code"])
}

func TestFeedbackRoutes(t *testing.T) {
	svc := &fakeService{}
	app, token := newTestApp(t, svc)

	status, body := send(t, app, http.MethodGet, "/api/v1/feedback/summary", "", token)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 2, body["agree"])

	status, _ = send(t, app, http.MethodGet, "/api/v1/detections/01HZZDET/feedback", "", token)
	require.Equal(t, http.StatusOK, status)

	status, _ = send(t, app, http.MethodPut, "/api/v1/feedback/01HZZFB", `{"agree":true,"comment":"ok"}`, token)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "01HZZFB", svc.updated.ID)
	require.Equal(t, "ok", svc.updated.Comment)

	status, _ = send(t, app, http.MethodDelete, "/api/v1/feedback/01HZZFB", "", token)
	require.Equal(t, http.StatusNoContent, status)
}
