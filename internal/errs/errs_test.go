package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"ms-auction/internal/errs"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{errs.NotFound("session", "s1"), http.StatusNotFound},
		{errs.Validationf("bad input"), http.StatusBadRequest},
		{errs.BidTooLow(decimal.NewFromInt(110)), http.StatusBadRequest},
		{errs.BusinessRulef("session not open"), http.StatusUnprocessableEntity},
		{errs.InvalidTransition("draft", "open"), http.StatusUnprocessableEntity},
		{errs.Conflictf("lost the race"), http.StatusConflict},
		{errs.Unauthorizedf("staff only"), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		assert.Equal(t, c.status, errs.HTTPStatus(c.err), "%v", c.err)
	}
}

func TestHTTPStatusUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("placing bid: %w", errs.Conflictf("lost the race"))
	assert.Equal(t, http.StatusConflict, errs.HTTPStatus(wrapped))
	assert.True(t, errs.IsConflict(wrapped))
}

func TestBidTooLowCarriesMinimum(t *testing.T) {
	err := errs.BidTooLow(decimal.NewFromInt(110))

	var ve *errs.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.True(t, ve.MinimumBid.Equal(decimal.NewFromInt(110)))
	assert.Equal(t, "minimum bid is 110", err.Error())
}
