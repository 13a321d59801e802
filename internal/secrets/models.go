package secrets

// EnvVars: the secret row the service reads. Only the first row is used.
type EnvVars struct {
	ID          int64  `gorm:"column:id;primaryKey"`
	User        string `gorm:"column:user"`
	Pass        string `gorm:"column:pass"`
	MenuBaseURL string `gorm:"column:m_dining_api_main"`
}

// TableName: the gorm table name.
func (EnvVars) TableName() string {
	return "env_vars"
}
