package storage

import (
	"slices"
	"strconv"
)

// StrToUint 将字符串转换为 uint。
func StrToUint(s string) (uint, error) {
	val, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(val), nil
}

func sortIDs(ids []uint) {
	slices.Sort(ids)
}
