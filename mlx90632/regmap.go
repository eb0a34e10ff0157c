package mlx90632

// Memory sections.
const (
	addrRAM    = 0x4000
	addrEEPROM = 0x2480
)

// EEPROM addresses. The 32-bit constants are stored as two words, least
// significant word first.
const (
	eeControl    = 0x24d4
	eeI2CAddress = 0x24d5
	eeVersion    = 0x240b

	eePR = 0x240c
	eePG = 0x240e
	eePT = 0x2410
	eePO = 0x2412
	eeEa = 0x2424
	eeEb = 0x2426
	eeFa = 0x2428
	eeFb = 0x242a
	eeGa = 0x242c
	eeGb = 0x242e
	eeKa = 0x242f
	eeHa = 0x2481
	eeHb = 0x2482

	eeMedicalMeas1  = 0x24e1
	eeMedicalMeas2  = 0x24e2
	eeExtendedMeas1 = 0x24f1
	eeExtendedMeas2 = 0x24f2
	eeExtendedMeas3 = 0x24f3
)

// Refresh rate field of a MEAS word, bits 10:8.
const (
	refreshRateShift = 8
	refreshRateMask  = 0x0700
)

// Volatile registers.
const (
	regI2CAddr = 0x3000
	regControl = 0x3001
	regCommand = 0x3005
	regStatus  = 0x3fff
)

// Control register layout.
const (
	ctrlPowerModeShift = 1
	ctrlPowerModeMask  = 0x0006
	ctrlSOCMask        = 1 << 3
	ctrlMeasTypeShift  = 4
	ctrlMeasTypeMask   = 0x01f0
	ctrlSOBMask        = 1 << 11
)

// Power modes, already shifted into position.
const (
	powerModeHalt       = 0 << ctrlPowerModeShift
	powerModeSleepStep  = 1 << ctrlPowerModeShift
	powerModeStep       = 2 << ctrlPowerModeShift
	powerModeContinuous = 3 << ctrlPowerModeShift
)

// Hardware measurement type selectors (the MTYP field value).
const (
	mtypMedical  = 0x00
	mtypExtended = 0x11
)

// Status register layout.
const (
	statBusy       = 1 << 10
	statEEBusy     = 1 << 9
	statBrownOut   = 1 << 8
	statCyclePos   = 0x007c
	statCycleShift = 2
	statDataReady  = 1 << 0
)

// Magic values.
const (
	dspV5            = 0x05
	extendedRangeKey = 0x0500
	eepromWriteKey   = 0x554c
	resetCommand     = 0x0006
	maxMeasNum       = 31

	// Maximum time in ms to refresh one table entry at the lowest rate.
	measMaxTime = 2000

	ref12 = 12.0
	ref3  = 12.0
)

func ram1(n int) uint16 { return uint16(addrRAM + 3*n) }
func ram2(n int) uint16 { return uint16(addrRAM + 3*n + 1) }
func ram3(n int) uint16 { return uint16(addrRAM + 3*n + 2) }
