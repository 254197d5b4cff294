package route

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument 构造寻路任务时参数非法
var ErrInvalidArgument = errors.New("invalid argument")

// ErrorCode 寻路任务的终止错误码
type ErrorCode int

const (
	CodeTooMuchTime          ErrorCode = iota + 1 // 超过maxTime
	CodeCannotCalculateRoute                      // 无法计算路径
	CodeStuck                                     // 卡住且无法脱困
	CodeUnexpectedState                           // 非法阶段（程序错误）
)

func (c ErrorCode) String() string {
	switch c {
	case CodeTooMuchTime:
		return "TOO_MUCH_TIME"
	case CodeCannotCalculateRoute:
		return "CANNOT_CALCULATE_ROUTE"
	case CodeStuck:
		return "STUCK"
	case CodeUnexpectedState:
		return "UNEXPECTED_STATE"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error 寻路任务的终止错误
// 说明：errors.Is按错误码比较，可与ErrTooMuchTime等哨兵值比较
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrTooMuchTime          = &Error{Code: CodeTooMuchTime}
	ErrCannotCalculateRoute = &Error{Code: CodeCannotCalculateRoute}
	ErrStuck                = &Error{Code: CodeStuck}
	ErrUnexpectedState      = &Error{Code: CodeUnexpectedState}
)
