package repository

import (
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialRepo 本地凭证存取。登录令牌与推送注册令牌的生命周期
// 由鉴权层管理，同步核心只读取。
type CredentialRepo interface {
	AuthToken() (string, error)
	SaveAuthToken(token string) error
	PushToken() (string, error)
	SavePushToken(token string) error
	Clear() error
}

type credentialRepoImpl struct {
	db *gorm.DB
}

func NewCredentialRepo(db *gorm.DB) CredentialRepo {
	return &credentialRepoImpl{db: db}
}

func (r *credentialRepoImpl) AuthToken() (string, error) {
	return r.get(consts.CredentialAuthToken)
}

func (r *credentialRepoImpl) SaveAuthToken(token string) error {
	return r.put(consts.CredentialAuthToken, token)
}

func (r *credentialRepoImpl) PushToken() (string, error) {
	return r.get(consts.CredentialPushToken)
}

func (r *credentialRepoImpl) SavePushToken(token string) error {
	return r.put(consts.CredentialPushToken, token)
}

// Clear 登出时清空全部本地凭证
func (r *credentialRepoImpl) Clear() error {
	return r.db.Where("1 = 1").Delete(&model.Credential{}).Error
}

func (r *credentialRepoImpl) get(key string) (string, error) {
	var row model.Credential
	err := r.db.First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

func (r *credentialRepoImpl) put(key, value string) error {
	return r.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&model.Credential{Key: key, Value: value}).Error
}
