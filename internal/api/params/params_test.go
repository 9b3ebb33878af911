package params

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/ragdesk/internal/domain"
)

func contextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestInt(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 50, false},
		{"limit=", 50, false},
		{"limit=1", 1, false},
		{"limit=500", 500, false},
		{"limit=0", 0, true},
		{"limit=501", 0, true},
		{"limit=abc", 0, true},
	}

	for _, tt := range tests {
		got, err := Int(contextWithQuery(tt.query), "limit", 50, 1, 500)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("Int(%q) error = %v, want ErrInvalidRequest", tt.query, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Int(%q) = %d, %v, want %d", tt.query, got, err, tt.want)
		}
	}
}

func TestPage(t *testing.T) {
	skip, limit, err := Page(contextWithQuery("skip=20"), 100, 1000)
	if err != nil || skip != 20 || limit != 100 {
		t.Errorf("Page = %d, %d, %v, want 20, 100", skip, limit, err)
	}

	if _, _, err := Page(contextWithQuery("skip=-1"), 100, 1000); err == nil {
		t.Error("negative skip accepted")
	}
	if _, _, err := Page(contextWithQuery("limit=1001"), 100, 1000); err == nil {
		t.Error("limit over maximum accepted")
	}
}
