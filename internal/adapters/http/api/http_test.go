package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/teamclash/internal/adapters/http/api"
	"github.com/okian/teamclash/internal/adapters/repository"
	service "github.com/okian/teamclash/internal/app"
	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/internal/domain/types"
	"github.com/okian/teamclash/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockDependencies records what the handlers asked for.
type mockDependencies struct {
	status      types.StatusView
	adminStatus types.AdminStatusView
	standings   types.StatsView
	report      types.SettlementReport
	events      []types.EventRecord
	user        types.UserView
	err         error

	gotTeam    string
	gotEventID string
	gotLimit   int
	gotNew     model.NewEvent
	gotUserID  string
	gotDelta   int64
}

func (m *mockDependencies) ActiveStatus(_ context.Context, callerTeam string) (types.StatusView, error) {
	m.gotTeam = callerTeam
	return m.status, m.err
}

func (m *mockDependencies) EventStatus(_ context.Context, eventID, callerTeam string) (types.StatusView, error) {
	m.gotEventID, m.gotTeam = eventID, callerTeam
	return m.status, m.err
}

func (m *mockDependencies) AdminActiveStatus(context.Context) (types.AdminStatusView, error) {
	return m.adminStatus, m.err
}

func (m *mockDependencies) AdminEventStatus(_ context.Context, eventID string) (types.AdminStatusView, error) {
	m.gotEventID = eventID
	return m.adminStatus, m.err
}

func (m *mockDependencies) CreateEvent(_ context.Context, in model.NewEvent) (types.EventRecord, error) {
	m.gotNew = in
	if m.err != nil {
		return types.EventRecord{}, m.err
	}
	return types.EventRecord{ID: "ev-1", Name: in.Name, StartAt: in.StartAt, EndAt: in.EndAt}, nil
}

func (m *mockDependencies) ListEvents(_ context.Context, limit int) ([]types.EventRecord, error) {
	m.gotLimit = limit
	return m.events, m.err
}

func (m *mockDependencies) RunSettlement(context.Context) (types.SettlementReport, error) {
	return m.report, m.err
}

func (m *mockDependencies) Standings(context.Context) (types.StatsView, error) {
	return m.standings, m.err
}

func (m *mockDependencies) CreateUser(_ context.Context, id, team string) (types.UserView, error) {
	m.gotUserID, m.gotTeam = id, team
	if m.err != nil {
		return types.UserView{}, m.err
	}
	return types.UserView{ID: "u-1", Team: team}, nil
}

func (m *mockDependencies) GetUser(_ context.Context, id string) (types.UserView, error) {
	m.gotUserID = id
	return m.user, m.err
}

func (m *mockDependencies) AdjustCurrency(_ context.Context, id string, delta int64) (types.UserView, error) {
	m.gotUserID, m.gotDelta = id, delta
	return m.user, m.err
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}})
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

var teacher = map[string]string{api.HeaderRole: "teacher"}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Fields  []struct {
		Field string `json:"field"`
		Error string `json:"error"`
	} `json:"fields"`
}

func decodeError(w *httptest.ResponseRecorder) errorBody {
	var body errorBody
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then the health endpoint should expose metrics", func() {
			w := do(mux, "GET", "/healthz", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint should return JSON", func() {
			w := do(mux, "GET", "/stats", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("Then unknown paths should be 404", func() {
			w := do(mux, "GET", "/unknown", "", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods should be rejected", func() {
			w := do(mux, "DELETE", "/status/active", "", nil)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestStatusHandlers(t *testing.T) {
	Convey("Given a student status endpoint", t, func() {
		deps := &mockDependencies{status: types.StatusView{
			Event:      &types.EventView{ID: "ev-1", Name: "quiz"},
			Hints:      []types.HintView{{Threshold: 500, Title: "clue"}},
			CallerTeam: "cat",
		}}
		mux := newMux(deps)

		Convey("When a student asks for the active event", func() {
			w := do(mux, "GET", "/status/active", "", map[string]string{api.HeaderTeam: "cat"})

			Convey("Then the caller team header should be forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.gotTeam, ShouldEqual, "cat")
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
				var view types.StatusView
				So(json.Unmarshal(w.Body.Bytes(), &view), ShouldBeNil)
				So(view.Event.ID, ShouldEqual, "ev-1")
				So(view.Hints[0].Unlocked, ShouldBeFalse)
			})
		})

		Convey("When a student asks for a specific event", func() {
			w := do(mux, "GET", "/status/events/ev-42", "", map[string]string{api.HeaderTeam: "dog"})

			Convey("Then the path id should be forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.gotEventID, ShouldEqual, "ev-42")
				So(deps.gotTeam, ShouldEqual, "dog")
			})
		})

		Convey("When the event does not exist", func() {
			deps.err = fmt.Errorf("load: %w", repository.ErrNotFound)
			w := do(mux, "GET", "/status/events/missing", "", nil)

			Convey("Then it should be 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decodeError(w).Code, ShouldEqual, "not_found")
			})
		})

		Convey("When the service is not running", func() {
			deps.err = service.ErrNotStarted
			w := do(mux, "GET", "/status/active", "", nil)

			Convey("Then it should be 503", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When the store fails", func() {
			deps.err = fmt.Errorf("boom")
			w := do(mux, "GET", "/status/active", "", nil)

			Convey("Then it should be 500 without the cause", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decodeError(w)
				So(body.Code, ShouldEqual, "internal_error")
				So(body.Message, ShouldEqual, "internal error")
				So(w.Body.String(), ShouldNotContainSubstring, "boom")
			})
		})
	})
}

func TestAdminAuthorization(t *testing.T) {
	Convey("Given the admin endpoints", t, func() {
		mux := newMux(&mockDependencies{})

		for _, route := range [][2]string{
			{"GET", "/admin/status/active"},
			{"GET", "/admin/events/ev-1/status"},
			{"GET", "/admin/events"},
			{"POST", "/admin/settlement/run"},
			{"GET", "/admin/standings"},
			{"GET", "/admin/users/u-1"},
		} {
			Convey("Then "+route[0]+" "+route[1]+" should require the teacher role", func() {
				w := do(mux, route[0], route[1], "", map[string]string{api.HeaderRole: "student"})
				So(w.Code, ShouldEqual, http.StatusForbidden)
				So(decodeError(w).Code, ShouldEqual, "forbidden")

				w = do(mux, route[0], route[1], "", nil)
				So(w.Code, ShouldEqual, http.StatusForbidden)
			})
		}

		Convey("Then the role check should ignore case", func() {
			w := do(mux, "GET", "/admin/standings", "", map[string]string{api.HeaderRole: "Teacher"})
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestAdminHandlers(t *testing.T) {
	Convey("Given a teacher calling admin endpoints", t, func() {
		deps := &mockDependencies{
			adminStatus: types.AdminStatusView{
				UnlockedThresholds: map[string][]int64{"cat": {0, 500}},
				RewardAmount:       200,
			},
			standings: types.StatsView{Totals: map[string]int64{"cat": 1200, "dog": 800}, Total: 2000},
			report:    types.SettlementReport{Candidates: 1, Settled: 1},
			events:    []types.EventRecord{{ID: "ev-2"}, {ID: "ev-1"}},
		}
		mux := newMux(deps)

		Convey("When reading the admin status", func() {
			w := do(mux, "GET", "/admin/events/ev-9/status", "", teacher)

			Convey("Then unlocked thresholds should be included", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.gotEventID, ShouldEqual, "ev-9")
				var view types.AdminStatusView
				So(json.Unmarshal(w.Body.Bytes(), &view), ShouldBeNil)
				So(view.UnlockedThresholds["cat"], ShouldResemble, []int64{0, 500})
				So(view.RewardAmount, ShouldEqual, 200)
			})
		})

		Convey("When creating a valid event", func() {
			body := `{"name":" Spring quiz ","startAt":"2026-03-02T10:00:00Z","endAt":"2026-03-02T11:00:00Z",
				"hints":[{"threshold":500,"title":"clue","content":"42"}],"rewardAmount":0}`
			w := do(mux, "POST", "/admin/events", body, teacher)

			Convey("Then the parsed event should reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.gotNew.Name, ShouldEqual, "Spring quiz")
				So(deps.gotNew.EndAt.Sub(deps.gotNew.StartAt), ShouldEqual, time.Hour)
				So(len(deps.gotNew.Hints), ShouldEqual, 1)
				So(deps.gotNew.Hints[0].Threshold, ShouldEqual, 500)
				So(deps.gotNew.RewardAmount, ShouldNotBeNil)
				So(*deps.gotNew.RewardAmount, ShouldEqual, 0)
			})
		})

		Convey("When the reward is omitted", func() {
			body := `{"name":"quiz","startAt":"2026-03-02T10:00:00Z","endAt":"2026-03-02T11:00:00Z"}`
			w := do(mux, "POST", "/admin/events", body, teacher)

			Convey("Then the service should pick the default", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.gotNew.RewardAmount, ShouldBeNil)
			})
		})

		Convey("When the event ends before it starts", func() {
			body := `{"name":"quiz","startAt":"2026-03-02T11:00:00Z","endAt":"2026-03-02T10:00:00Z"}`
			w := do(mux, "POST", "/admin/events", body, teacher)

			Convey("Then the field error should be reported", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				resp := decodeError(w)
				So(resp.Code, ShouldEqual, "bad_request")
				So(len(resp.Fields), ShouldEqual, 1)
				So(resp.Fields[0].Field, ShouldEqual, "endAt")
			})
		})

		Convey("When required fields are missing or malformed", func() {
			body := `{"name":"  ","startAt":"yesterday","endAt":"2026-03-02T10:00:00Z","hints":[{"title":"x"}],"rewardAmount":-5}`
			w := do(mux, "POST", "/admin/events", body, teacher)

			Convey("Then every bad field should be listed by its JSON name", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				fields := map[string]bool{}
				for _, f := range decodeError(w).Fields {
					fields[f.Field] = true
					So(f.Error, ShouldNotBeEmpty)
				}
				So(fields["name"], ShouldBeTrue)
				So(fields["startAt"], ShouldBeTrue)
				So(fields["hints[0].threshold"], ShouldBeTrue)
				So(fields["rewardAmount"], ShouldBeTrue)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, "POST", "/admin/events", "{", teacher)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the store rejects the event", func() {
			deps.err = fmt.Errorf("create: %w", repository.ErrInvalidEvent)
			body := `{"name":"quiz","startAt":"2026-03-02T10:00:00Z","endAt":"2026-03-02T11:00:00Z"}`
			w := do(mux, "POST", "/admin/events", body, teacher)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When listing events", func() {
			Convey("Then the default limit should apply", func() {
				w := do(mux, "GET", "/admin/events", "", teacher)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.gotLimit, ShouldEqual, 20)
			})

			Convey("Then an explicit limit should be forwarded", func() {
				w := do(mux, "GET", "/admin/events?limit=5", "", teacher)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.gotLimit, ShouldEqual, 5)
				var list []types.EventRecord
				So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
				So(len(list), ShouldEqual, 2)
			})

			Convey("Then a non-positive or garbage limit should be rejected", func() {
				for _, raw := range []string{"0", "-1", "abc"} {
					w := do(mux, "GET", "/admin/events?limit="+raw, "", teacher)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
				}
			})
		})

		Convey("When triggering settlement", func() {
			w := do(mux, "POST", "/admin/settlement/run", "", teacher)

			Convey("Then the report should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var report types.SettlementReport
				So(json.Unmarshal(w.Body.Bytes(), &report), ShouldBeNil)
				So(report.Settled, ShouldEqual, 1)
			})
		})

		Convey("When reading live standings", func() {
			w := do(mux, "GET", "/admin/standings", "", teacher)

			Convey("Then totals should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var stats types.StatsView
				So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
				So(stats.Total, ShouldEqual, 2000)
			})
		})
	})
}

func TestUsersHandlers(t *testing.T) {
	Convey("Given a teacher managing users", t, func() {
		deps := &mockDependencies{user: types.UserView{ID: "u-1", Team: "cat", CurrencyBalance: 50}}
		mux := newMux(deps)

		Convey("When registering a user", func() {
			w := do(mux, "POST", "/admin/users", `{"id":" s-1 ","team":"cat"}`, teacher)

			Convey("Then the trimmed id and team should reach the service", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(deps.gotUserID, ShouldEqual, "s-1")
				So(deps.gotTeam, ShouldEqual, "cat")
			})
		})

		Convey("When the team is missing", func() {
			w := do(mux, "POST", "/admin/users", `{"id":"s-1"}`, teacher)

			Convey("Then the team field should be reported", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w).Fields[0].Field, ShouldEqual, "team")
			})
		})

		Convey("When the team is not configured", func() {
			deps.err = repository.ErrUnknownTeam
			w := do(mux, "POST", "/admin/users", `{"team":"owl"}`, teacher)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the id is taken", func() {
			deps.err = repository.ErrDuplicateUser
			w := do(mux, "POST", "/admin/users", `{"id":"s-1","team":"cat"}`, teacher)

			Convey("Then it should conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decodeError(w).Code, ShouldEqual, "conflict")
				So(decodeError(w).Message, ShouldContainSubstring, "api.create_user: conflict")
			})
		})

		Convey("When adjusting currency", func() {
			w := do(mux, "POST", "/admin/users/u-1/currency", `{"delta":-20}`, teacher)

			Convey("Then the delta should be forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.gotUserID, ShouldEqual, "u-1")
				So(deps.gotDelta, ShouldEqual, -20)
			})
		})

		Convey("When the delta is missing", func() {
			w := do(mux, "POST", "/admin/users/u-1/currency", `{}`, teacher)

			Convey("Then it should be a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the balance would go negative", func() {
			deps.err = repository.ErrInsufficientBalance
			w := do(mux, "POST", "/admin/users/u-1/currency", `{"delta":-1000}`, teacher)

			Convey("Then it should conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decodeError(w).Code, ShouldEqual, "insufficient_balance")
			})
		})

		Convey("When reading a user", func() {
			w := do(mux, "GET", "/admin/users/u-1", "", teacher)

			Convey("Then the balance should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var u types.UserView
				So(json.Unmarshal(w.Body.Bytes(), &u), ShouldBeNil)
				So(u.CurrencyBalance, ShouldEqual, 50)
			})
		})

		Convey("When reading an unknown user", func() {
			deps.err = repository.ErrNotFound
			w := do(mux, "GET", "/admin/users/nobody", "", teacher)

			Convey("Then it should be 404", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}
