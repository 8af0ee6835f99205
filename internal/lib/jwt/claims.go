// Package jwt реализует генерацию и проверку JWT токенов администраторов.
//
// Токены выпускает основной бэкенд маркетплейса общим секретом, здесь они только
// проверяются. GenerateToken нужен утилите admintoken и тестам.
package jwt

import (
	"time"
)

// RoleAdmin роль, которой открыт административный API уведомлений.
const RoleAdmin = "admin"

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	GenerateToken(username, role string) (string, error)
	// ParseToken возвращает *CustomClaims с username и role
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
