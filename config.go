package verisend

// Config represents the main config
type Config struct {
	DB struct {
		Type string // "bolt", "sqlite", etc.
		Path string
	}

	HTTP struct {
		Addr string
	}

	SMTP struct {
		Host     string
		Port     int
		Username string
		Password string
	}

	Compliance struct {
		From       string
		DailyLimit int
		Product    struct {
			Name string
		}
		Signing struct {
			Secret string
		}
		Unsubscribe struct {
			BaseURL string
			HMAC    struct {
				Secret string
			}
		}
		Probe struct {
			TimeoutMs int
			Cron      struct {
				Spec string
			}
		}
	}

	Sentry struct {
		DSN string
	}

	AMQP struct {
		URL   string
		Topic string
	}
}
