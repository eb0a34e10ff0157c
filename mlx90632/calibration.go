package mlx90632

// Calibration holds the per-device DSP v5 constants stored in EEPROM. Read it
// once with ReadCalibration and pass it to the temperature functions.
type Calibration struct {
	PR, PG, PT, PO int32
	Ea, Eb         int32
	Fa, Fb         int32
	Ga             int32
	Gb, Ka         int16
	Ha, Hb         int16
}

// ReadCalibration reads the calibration constants from EEPROM.
func (d *Dev) ReadCalibration() (Calibration, error) {
	var c Calibration

	words32 := []struct {
		addr uint16
		dst  *int32
	}{
		{eePR, &c.PR},
		{eePG, &c.PG},
		{eePT, &c.PT},
		{eePO, &c.PO},
		{eeEa, &c.Ea},
		{eeEb, &c.Eb},
		{eeFa, &c.Fa},
		{eeFb, &c.Fb},
		{eeGa, &c.Ga},
	}
	for _, w := range words32 {
		v, err := d.read32(w.addr)
		if err != nil {
			return Calibration{}, err
		}
		*w.dst = v
	}

	words16 := []struct {
		addr uint16
		dst  *int16
	}{
		{eeGb, &c.Gb},
		{eeKa, &c.Ka},
		{eeHa, &c.Ha},
		{eeHb, &c.Hb},
	}
	for _, w := range words16 {
		v, err := d.bus.Read16(w.addr)
		if err != nil {
			return Calibration{}, err
		}
		*w.dst = int16(v)
	}

	return c, nil
}

// read32 reads a 32-bit EEPROM constant, least significant word first.
func (d *Dev) read32(addr uint16) (int32, error) {
	lsw, err := d.bus.Read16(addr)
	if err != nil {
		return 0, err
	}

	msw, err := d.bus.Read16(addr + 1)
	if err != nil {
		return 0, err
	}

	return int32(uint32(msw)<<16 | uint32(lsw)), nil
}
