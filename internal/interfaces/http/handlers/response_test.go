package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/turtacn/MetaboScope/pkg/errors"
)

func TestRespondAppError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"not found with detail", errors.New(errors.ErrCodeSessionNotFound, "session not found").WithDetail("id=s1"), http.StatusNotFound, "STATE_001", "session not found: id=s1"},
		{"wrapped app error", fmt.Errorf("outer: %w", errors.New(errors.ErrCodeSortInvalid, "invalid sort")), http.StatusBadRequest, "STATE_004", "invalid sort"},
		{"internal masked", errors.Wrap(fmt.Errorf("pq: password=secret"), errors.ErrCodeDatabaseError, "query failed"), http.StatusInternalServerError, "COMMON_001", "internal server error"},
		{"plain error masked", fmt.Errorf("boom"), http.StatusInternalServerError, "COMMON_001", "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { respondAppError(c, tt.err) })

			w := doJSON(t, r, http.MethodGet, "/", nil)
			assert.Equal(t, tt.status, w.Code)
			env := decode[ErrorEnvelope](t, w)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, tt.msg, env.Error.Message)
		})
	}
}

func TestQueryInt(t *testing.T) {
	var got []int
	r := gin.New()
	r.GET("/", func(c *gin.Context) { got = append(got, queryInt(c, "n", 7)) })

	for _, q := range []string{"", "?n=3", "?n=0", "?n=abc"} {
		doJSON(t, r, http.MethodGet, "/"+q, nil)
	}
	assert.Equal(t, []int{7, 3, 7, 7}, got)
}
