package models

// Setting 模块配置项（键值对）
type Setting struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Key   string `gorm:"column:setting;size:64;uniqueIndex" json:"setting"`
	Value string `gorm:"size:255" json:"value"`
}

func (Setting) TableName() string {
	return "module_settings"
}
