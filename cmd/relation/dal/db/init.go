package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormopentracing "gorm.io/plugin/opentracing"

	"Loopline.com/config"
)

var DB *gorm.DB

// Init opens the relation database. TranslateError maps driver
// uniqueness violations onto gorm sentinel errors so a concurrent
// duplicate follow is distinguishable from a real failure.
func Init() {
	var err error
	DB, err = gorm.Open(mysql.Open(config.ConfigInfo.Mysql.DSN()),
		&gorm.Config{
			PrepareStmt:            true,
			SkipDefaultTransaction: true,
			TranslateError:         true,
		},
	)
	if err != nil {
		panic(err)
	}
	if err = DB.Use(gormopentracing.New()); err != nil {
		panic(err)
	}
}
