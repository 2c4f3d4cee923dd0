// internal/services/payment_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToCents(t *testing.T) {
	// 19.99*100 is 1998.9999... in float64; truncation would lose a cent.
	assert.EqualValues(t, 1999, toCents(19.99))
	assert.EqualValues(t, 5997, toCents(19.99*3))
	assert.EqualValues(t, 7200, toCents(72.00))
	assert.EqualValues(t, 0, toCents(0))
	assert.EqualValues(t, 1, toCents(0.01))
}
