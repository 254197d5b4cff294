package schedule

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/gridroute-sim/entity"
	"github.com/tsinghua-fib-lab/gridroute-sim/schema"
)

// Schedule 时刻表
// 功能：管理智能体的出行计划，按顺序依次执行每一次出行
type Schedule struct {
	ctx entity.ITaskContext

	base            []*schema.Trip // 时刻表
	TripIndex       int32          // 当前trip下标
	lastTripEndTime float64        // 上次trip结束时间
}

// NewSchedule 创建一个空的时刻表
func NewSchedule(ctx entity.ITaskContext) *Schedule {
	return &Schedule{
		ctx:  ctx,
		base: make([]*schema.Trip, 0),
	}
}

// Base 获取时刻表
func (s *Schedule) Base() []*schema.Trip {
	return s.base
}

// NextTrip 进入下一个trip，返回是否还有trip
// 参数：time-当前时间（即上一个trip的结束时间）
func (s *Schedule) NextTrip(time float64) bool {
	if len(s.base) == 0 {
		return false
	}
	s.lastTripEndTime = time
	if s.TripIndex++; s.TripIndex == int32(len(s.base)) {
		s.base = make([]*schema.Trip, 0)
		s.TripIndex = 0
		return false
	}
	return true
}

// GetTrip 获取当前trip，没有时返回nil
func (s *Schedule) GetTrip() *schema.Trip {
	if s.TripIndex >= int32(len(s.base)) {
		return nil
	}
	return s.base[s.TripIndex]
}

// Set 设置时刻表
// 功能：过滤终点无效的trip，重置下标
// 参数：base-新的时刻表，time-当前时间
func (s *Schedule) Set(base []*schema.Trip, time float64) {
	s.base = lo.Filter(base, func(trip *schema.Trip, _ int) bool {
		if err := s.checkPositionOk(trip.End); err != nil {
			log.Warnf("invalid trip %+v, %v, skip it", trip, err)
			return false
		}
		return true
	})
	s.TripIndex = 0
	s.lastTripEndTime = time
}

// Empty 判断时刻表是否为空
func (s *Schedule) Empty() bool {
	return len(s.base) == 0
}

// GetDepartureTime 获取当前trip的出发时间
// 返回：出发时间，没有trip时返回+Inf
// 说明：优先使用trip的出发时间，其次使用上次结束时间加等待时间
func (s *Schedule) GetDepartureTime() float64 {
	trip := s.GetTrip()
	if trip == nil {
		return math.Inf(1)
	}
	if trip.Departure != nil {
		return *trip.Departure
	}
	if trip.WaitTime != nil {
		return s.lastTripEndTime + *trip.WaitTime
	}
	return s.lastTripEndTime
}

// checkPositionOk 检查trip终点是否在已知地图内
func (s *Schedule) checkPositionOk(pos schema.Position) error {
	f, err := s.ctx.FieldManager().GetOrError(pos.Field)
	if err != nil {
		return err
	}
	if !f.InBounds(pos.XY()) {
		return fmt.Errorf("end %v is out of field %s", pos.XY(), pos.Field)
	}
	return nil
}
