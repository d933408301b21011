// Package utils 提供通用工具函数
package utils

import (
	"crypto/rand"
	"io"
	"math/big"
	"strings"
	"time"
)

// BookingNoPrefix 预订号前缀
const BookingNoPrefix = "BK"

const bookingNoCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateBookingNo 生成预订号
// 格式: BK + UTC 年月日 + 6 位大写字母或数字
func GenerateBookingNo(now time.Time, random io.Reader) (string, error) {
	if random == nil {
		random = rand.Reader
	}
	suffix, err := RandomString(random, bookingNoCharset, 6)
	if err != nil {
		return "", err
	}
	return BookingNoPrefix + now.UTC().Format("20060102") + suffix, nil
}

// RandomString 从字符集中均匀抽取指定长度的字符串
func RandomString(random io.Reader, charset string, length int) (string, error) {
	var sb strings.Builder
	sb.Grow(length)
	max := big.NewInt(int64(len(charset)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(random, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(charset[n.Int64()])
	}
	return sb.String(), nil
}

// IsBookingNo 校验预订号格式
func IsBookingNo(s string) bool {
	if len(s) != len(BookingNoPrefix)+8+6 || !strings.HasPrefix(s, BookingNoPrefix) {
		return false
	}
	if _, err := time.Parse("20060102", s[2:10]); err != nil {
		return false
	}
	for i := 10; i < len(s); i++ {
		if !strings.ContainsRune(bookingNoCharset, rune(s[i])) {
			return false
		}
	}
	return true
}

// IsCurrencyCode 判断是否为三位大写字母币种代码
func IsCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// TruncateDate 截断到 UTC 当天零点
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween 返回两个日期之间相差的整天数 (to - from)
func DaysBetween(from, to time.Time) int {
	return int(TruncateDate(to).Sub(TruncateDate(from)).Hours() / 24)
}

// Int64Ptr 返回 int64 指针
func Int64Ptr(i int64) *int64 {
	return &i
}

// TimePtr 返回时间指针
func TimePtr(t time.Time) *time.Time {
	return &t
}

// SafeString 安全获取字符串指针的值
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Pagination 分页参数
type Pagination struct {
	Page     int   `json:"page" form:"page"`
	PageSize int   `json:"page_size" form:"page_size"`
	Total    int64 `json:"total"`
}

// GetOffset 获取偏移量
func (p *Pagination) GetOffset() int {
	return (p.Page - 1) * p.PageSize
}

// GetLimit 获取限制数
func (p *Pagination) GetLimit() int {
	return p.PageSize
}

// Normalize 规范化分页参数
func (p *Pagination) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}
