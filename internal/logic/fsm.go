package logic

// advance feeds one raw event into the sensor's FSM and reports a confirmed
// transition, if any.
//
// A debounce window spans DebounceDepth steps, the edge step included. The
// raw input is only consulted again at the step where the window closes:
// if it still agrees with the edge the transition is confirmed, otherwise
// the sensor falls back to the stable state it came from.
func (s *Sensor) advance(ev RawEvent) (Edge, bool) {
	s.rt.LastRaw = ev

	switch s.rt.State {
	case Released:
		if ev == RawDown {
			s.rt.Remaining = s.cfg.DebounceDepth
			s.rt.State = FallingDebounce
			return s.countdown()
		}
	case FallingDebounce, RisingDebounce:
		return s.countdown()
	case Pressed:
		if ev == RawUp {
			s.rt.Remaining = s.cfg.DebounceDepth
			s.rt.State = RisingDebounce
			return s.countdown()
		}
	}
	return "", false
}

func (s *Sensor) countdown() (Edge, bool) {
	if s.rt.Remaining > 0 {
		s.rt.Remaining--
	}
	if s.rt.Remaining != 0 {
		return "", false
	}

	switch s.rt.State {
	case FallingDebounce:
		if s.rt.LastRaw == RawDown {
			s.rt.State = Pressed
			return EdgeDown, true
		}
		s.rt.State = Released
	case RisingDebounce:
		if s.rt.LastRaw == RawUp {
			s.rt.State = Released
			return EdgeUp, true
		}
		s.rt.State = Pressed
	}
	return "", false
}
