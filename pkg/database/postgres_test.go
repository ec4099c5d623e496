package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/edutech-api/pkg/config"
)

func TestDSNAndMask(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "s3cret", Name: "edutech", SSLMode: "disable"})

	assert.Equal(t, "host=db port=5432 user=app password=s3cret dbname=edutech sslmode=disable", dsn)
	assert.Equal(t, "host=db port=5432 user=app password=****** dbname=edutech sslmode=disable", MaskDSN(dsn))
}
