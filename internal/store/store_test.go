package store

import "github.com/alohacamp/leadcheck/internal/config"

func configStore(driver, url string) config.StoreConfig {
	return config.StoreConfig{Driver: driver, DatabaseURL: url}
}
