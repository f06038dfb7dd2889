package utils

// 航班数据集列名
const (
	ColFlightDate        = "fl_date"
	ColOrigin            = "origin"
	ColMonth             = "month"
	ColDepTime           = "dep_time"
	ColTaxiOut           = "taxi_out"
	ColWheelsOff         = "wheels_off"
	ColWheelsOn          = "wheels_on"
	ColTaxiIn            = "taxi_in"
	ColAirTime           = "air_time"
	ColDistance          = "distance"
	ColWeatherDelay      = "weather_delay"
	ColLateAircraftDelay = "late_aircraft_delay"
	ColCancelled         = "cancelled"
)

// RequiredColumns 数据集必须包含的列
var RequiredColumns = []string{
	ColFlightDate,
	ColOrigin,
	ColDepTime,
	ColTaxiOut,
	ColWheelsOff,
	ColWheelsOn,
	ColTaxiIn,
	ColAirTime,
	ColDistance,
	ColWeatherDelay,
	ColLateAircraftDelay,
	ColCancelled,
}

// FloatColumns 按浮点数读取的列，空值为NaN
var FloatColumns = []string{
	ColDepTime,
	ColTaxiOut,
	ColWheelsOff,
	ColWheelsOn,
	ColTaxiIn,
	ColAirTime,
	ColDistance,
	ColWeatherDelay,
	ColLateAircraftDelay,
}
