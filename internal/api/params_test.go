package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
)

func TestParseRangeEndOfDayAcrossDST(t *testing.T) {
	gin.SetMode(gin.TestMode)
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	saved := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = saved })

	cases := []struct {
		query string
		from  time.Time
		to    time.Time
	}{
		{"start_date=03/09/2024&end_date=03/10/2024", time.Date(2024, 3, 9, 0, 0, 0, 0, loc), time.Date(2024, 3, 10, 23, 59, 59, 0, loc)},
		{"start_date=11/02/2024&end_date=11/03/2024", time.Date(2024, 11, 2, 0, 0, 0, 0, loc), time.Date(2024, 11, 3, 23, 59, 59, 0, loc)},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)

		w, ok, err := parseRange(c)
		if err != nil || !ok {
			t.Fatalf("%s: ok=%v err=%v", tc.query, ok, err)
		}
		if !w.From.Equal(tc.from) || !w.To.Equal(tc.to) {
			t.Fatalf("%s: window = %s .. %s", tc.query, w.From, w.To)
		}
		if h, m, s := w.To.Clock(); h != 23 || m != 59 || s != 59 || w.To.Day() != tc.to.Day() {
			t.Fatalf("%s: end wall clock = %s", tc.query, w.To)
		}
	}
}

func TestParseRangeMissingOrMalformed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query   string
		wantErr bool
	}{
		{"start_date=03/09/2024", false},
		{"start_date=2024-03-09&end_date=03/10/2024", true},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		_, ok, err := parseRange(c)
		if ok || (err != nil) != tc.wantErr {
			t.Fatalf("%s: ok=%v err=%v", tc.query, ok, err)
		}
	}
}
