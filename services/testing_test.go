package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"strompris-api/config"
	"strompris-api/models"
)

// newTestDB opens a private in-memory SQLite database with migrations run
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.MigratePriceModels(db))
	return db
}

// testConfig builds a config with three areas, the last one tax-exempt
func testConfig(feedURL string) *config.Config {
	return &config.Config{
		PriceFeedURL:    feedURL,
		FetchTimeout:    2 * time.Second,
		MarketAreas:     []string{"NO1", "NO2", "NO3"},
		ExemptArea:      "NO3",
		PriceMultiplier: decimal.RequireFromString("1.25"),
		PriceSurcharge:  decimal.RequireFromString("0.1541"),
	}
}

type feedEntry struct {
	NOKPerKWh float64 `json:"NOK_per_kWh"`
	EURPerKWh float64 `json:"EUR_per_kWh"`
	EXR       float64 `json:"EXR"`
	TimeStart string  `json:"time_start"`
	TimeEnd   string  `json:"time_end"`
}

var feedPathRe = regexp.MustCompile(`^/(\d{4})/(\d{2})-(\d{2})_([A-Z0-9]+)\.json$`)

// newFeedServer fakes the price feed: 24 hourly entries per (day, area) at
// the given raw price, with failures injected per area code.
func newFeedServer(t *testing.T, rawPrice float64, failAreas map[string]bool) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := feedPathRe.FindStringSubmatch(r.URL.Path)
		if m == nil {
			http.Error(w, "bad path", http.StatusNotFound)
			return
		}
		area := m[4]
		if failAreas[area] {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}

		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])

		entries := make([]feedEntry, 0, 24)
		for hour := 0; hour < 24; hour++ {
			start := time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC)
			entries = append(entries, feedEntry{
				NOKPerKWh: rawPrice,
				EURPerKWh: rawPrice / 11,
				EXR:       11,
				TimeStart: start.Format(time.RFC3339),
				TimeEnd:   start.Add(time.Hour).Format(time.RFC3339),
			})
		}
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			t.Errorf("encode feed response: %v", err)
		}
	}))
}

// seedLinearHistory inserts an exactly linear price history so the model
// has full-rank training data.
func seedLinearHistory(t *testing.T, db *gorm.DB, areas []string, days int) {
	t.Helper()

	start := models.DateOnly(time.Now()).AddDate(0, 0, -days)
	var rows []models.HourlyPrice
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d)
		for hour := 0; hour < 24; hour++ {
			for i, area := range areas {
				rows = append(rows, models.HourlyPrice{
					Date:  date,
					Hour:  hour,
					Price: 0.5 + 0.01*float64(hour) + 0.2*float64(i),
					Area:  area,
				})
			}
		}
	}
	require.NoError(t, db.Create(&rows).Error)
}
