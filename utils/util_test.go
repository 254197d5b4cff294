package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils"
)

func TestFind(t *testing.T) {
	data := []string{"a", "b", "c"}
	dataMap := map[int]string{1: "a", 2: "b", 3: "c"}

	all, failed := utils.Find(dataMap, data, nil)
	assert.Equal(t, data, all)
	assert.Nil(t, failed)

	ok, failed := utils.Find(dataMap, data, []int{3, 4, 1})
	assert.Equal(t, []string{"c", "a"}, ok)
	assert.Equal(t, []int{4}, failed)
}
