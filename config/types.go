package config

type config struct {
	Mysql    mysql
	Redis    redis
	RabbitMq rabbitmq
	Minio    minio
	Verifier verifier
}

type mysql struct {
	Addr     string
	Database string
	Username string
	Password string
	Charset  string
}

// DSN builds the go-sql-driver connection string. Charset defaults to
// utf8mb4 when the config leaves it empty.
func (m mysql) DSN() string {
	charset := m.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	return m.Username + ":" + m.Password +
		"@tcp(" + m.Addr + ")/" + m.Database +
		"?charset=" + charset + "&parseTime=True&loc=Local"
}

type redis struct {
	Addr     string
	Password string
	DB       int
}

type rabbitmq struct {
	Addr     string
	Username string
	Password string
}

type minio struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type verifier struct {
	// CheckIntervalMinutes controls the periodic sweep cadence.
	CheckIntervalMinutes int
	// Limit bounds how many activities one sweep inspects.
	Limit int
	// AutoFix enables in-place counter repair after a sweep.
	AutoFix bool
}
