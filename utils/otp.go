// utils/otp.go
package utils

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ValidateOTPAttempts throttles OTP issuance per mobile number when Redis is
// available. Limit is 5 requests per rolling hour.
func ValidateOTPAttempts(ctx context.Context, mobile string, rdb *redis.Client) error {
	key := "otp_attempts:" + mobile
	attempts, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	// Set expiry if first attempt
	if attempts == 1 {
		rdb.Expire(ctx, key, 1*time.Hour)
	}

	if attempts > 5 {
		return errors.New("too many OTP attempts")
	}

	return nil
}
