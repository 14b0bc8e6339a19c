package kafka

import (
	"github.com/caarlos0/env/v10"
)

// Config содержит конфигурацию подключения к Kafka
// Публикация событий выключена, пока KAFKA_BROKERS пуст
type Config struct {
	// Brokers — список брокеров Kafka через запятую
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	// Topic — топик событий продаж
	Topic string `env:"KAFKA_TOPIC" envDefault:"pos.sales"`
}

// LoadEnv загружает конфигурацию из переменных окружения
// Использует пакет caarlos0/env/v10 для парсинга env-тегов
func LoadEnv() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Enabled сообщает, настроена ли публикация событий
func (c Config) Enabled() bool {
	return len(c.Brokers) > 0
}
