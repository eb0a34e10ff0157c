package mlx90632

import "math"

// DSP v5 compensation. The scaling constants are fixed by the vendor and the
// formulas below must be evaluated in this order to reproduce the vendor test
// vectors.

const (
	// Number of fixed point iterations of the object temperature. Five
	// iterations converge to well under 0.01 °C.
	objectIterations = 5

	// Seed of the object temperature iteration, in °C.
	objectSeed = 25.0

	kelvinOffset = 273.15

	pow10 = 1e10
	two36 = 68719476736.0    // 2^36
	two44 = 17592186044416.0 // 2^44
	two46 = 70368744177664.0 // 2^46
	two19 = 524288.0         // 2^19
	two20 = 1048576.0        // 2^20
)

// PreprocessAmbient converts the raw ambient pair into the value fed to
// AmbientTemperature and the object temperature formulas.
func PreprocessAmbient(newRaw, oldRaw, gb int16) float64 {
	kGb := float64(gb) / 1024.0
	vrTa := float64(oldRaw) + kGb*(float64(newRaw)/ref3)
	return (float64(newRaw) / ref3) / vrTa * two19
}

// PreprocessObject converts a medical range raw object pair. The object pair is
// averaged with integer division.
func PreprocessObject(objectNew, objectOld, ambientNew, ambientOld, ka int16) float64 {
	avg := (int32(objectNew) + int32(objectOld)) / 2
	return preprocessObject(float64(avg), ambientNew, ambientOld, ka)
}

// PreprocessObjectExtended converts an extended range raw object value.
func PreprocessObjectExtended(object, ambientNew, ambientOld, ka int16) float64 {
	return preprocessObject(float64(object), ambientNew, ambientOld, ka)
}

func preprocessObject(object float64, ambientNew, ambientOld, ka int16) float64 {
	kKa := float64(ka) / 1024.0
	vrIR := float64(ambientOld) + kKa*(float64(ambientNew)/ref3)
	return (object / ref12) / vrIR * two19
}

// AmbientTemperature returns the die temperature in °C.
func AmbientTemperature(ambientNew, ambientOld int16, c Calibration) float64 {
	amb := PreprocessAmbient(ambientNew, ambientOld, c.Gb)

	aSub := float64(c.PT) / two44
	bSub := amb - float64(c.PR)/256.0
	aBlock := aSub * (bSub * bSub)
	bBlock := (bSub / float64(c.PG)) * two20
	cBlock := float64(c.PO) / 256.0

	return bBlock + aBlock + cBlock
}

// ObjectTemperature returns the object temperature in °C. object and ambient
// are the preprocessed values truncated to integers. An emissivity of zero is
// treated as 1.0.
func ObjectTemperature(object, ambient int32, c Calibration, emissivity float64) float64 {
	e := effectiveEmissivity(emissivity)
	tAdut := ambientDieTemperature(ambient, c)
	return iterateObject(object, tAdut, fourthPower(tAdut), c.Fa, c, e, objectIterations)
}

// ObjectTemperatureReflected is ObjectTemperature corrected for radiation from
// surroundings at the reflected temperature, in °C, reaching the sensor off a
// surface with emissivity below 1.
func ObjectTemperatureReflected(object, ambient int32, reflected float64, c Calibration, emissivity float64) float64 {
	e := effectiveEmissivity(emissivity)
	tAdut := ambientDieTemperature(ambient, c)
	return iterateObject(object, tAdut, reflectedTerm(tAdut, reflected, e), c.Fa, c, e, objectIterations)
}

// ObjectTemperatureExtended returns the object temperature in °C for extended
// range measurements. Pass the ambient temperature as reflected when the
// surroundings are not known.
func ObjectTemperatureExtended(object, ambient int32, reflected float64, c Calibration, emissivity float64) float64 {
	e := effectiveEmissivity(emissivity)
	tAdut := ambientDieTemperature(ambient, c)
	return iterateObject(object, tAdut, reflectedTerm(tAdut, reflected, e), c.Fa/2, c, e, objectIterations)
}

// ObjectTemperature uses the device's emissivity.
func (d *Dev) ObjectTemperature(object, ambient int32, c Calibration) float64 {
	return ObjectTemperature(object, ambient, c, d.Emissivity())
}

// ObjectTemperatureReflected uses the device's emissivity.
func (d *Dev) ObjectTemperatureReflected(object, ambient int32, reflected float64, c Calibration) float64 {
	return ObjectTemperatureReflected(object, ambient, reflected, c, d.Emissivity())
}

// ObjectTemperatureExtended uses the device's emissivity.
func (d *Dev) ObjectTemperatureExtended(object, ambient int32, reflected float64, c Calibration) float64 {
	return ObjectTemperatureExtended(object, ambient, reflected, c, d.Emissivity())
}

func effectiveEmissivity(e float64) float64 {
	if e == 0 {
		return 1.0
	}
	return e
}

func ambientDieTemperature(ambient int32, c Calibration) float64 {
	kEa := float64(c.Ea) / 65536.0
	kEb := float64(c.Eb) / 256.0
	return (float64(ambient)-kEb)/kEa + 25
}

func fourthPower(celsius float64) float64 {
	k := celsius + kelvinOffset
	k = k * k
	return k * k
}

func reflectedTerm(tAdut, reflected, emissivity float64) float64 {
	ta4 := fourthPower(tAdut)
	tr4 := fourthPower(reflected)
	return tr4 - (tr4-ta4)/emissivity
}

// iterateObject refines the object temperature starting from objectSeed. ta4
// is the fourth power of the absolute temperature the object radiation is
// added to.
func iterateObject(object int32, tAdut, ta4 float64, fa int32, c Calibration, emissivity float64, iterations int) float64 {
	temp := objectSeed
	for i := 0; i < iterations; i++ {
		temp = objectIteration(temp, object, tAdut, ta4, fa, c, emissivity)
	}
	return temp
}

func objectIteration(prev float64, object int32, tAdut, ta4 float64, fa int32, c Calibration, emissivity float64) float64 {
	haCustomer := float64(c.Ha) / 16384.0
	hbCustomer := float64(c.Hb) / 1024.0

	calcedGa := float64(c.Ga) * (prev - 25) / two36
	calcedGb := float64(c.Fb) * (tAdut - 25) / two36

	alphaCorr := float64(int64(fa)*int64(pow10)) * haCustomer * (1 + calcedGa + calcedGb) / two46
	calcedFa := float64(object) / (emissivity * (alphaCorr / pow10))

	return math.Sqrt(math.Sqrt(calcedFa+ta4)) - kelvinOffset - hbCustomer
}
