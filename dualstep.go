package dualstep

// Direction is the rotation sense committed to a motor's DIR output
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	switch d {
	case Backward:
		return "BACKWARD"
	default:
		fallthrough
	case Forward:
		return "FORWARD"
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Sign is the amount added to a position counter for each step in this Direction
func (d Direction) Sign() int32 {
	if d == Backward {
		return -1
	}
	return 1
}

// Opposite returns the reverse Direction
func (d Direction) Opposite() Direction {
	if d == Backward {
		return Forward
	}
	return Backward
}

// MotorID identifies one of the two physical motors
type MotorID int

const (
	Motor1 MotorID = iota
	Motor2
)

// NumMotors is the number of motors driven by a single controller
const NumMotors = 2

func (id MotorID) String() string {
	switch id {
	case Motor1:
		return "Motor1"
	case Motor2:
		return "Motor2"
	default:
		return "Unknown"
	}
}

func (id MotorID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// Side is the mounting position of the motor on the vehicle
func (id MotorID) Side() string {
	if id == Motor2 {
		return "Right/Starboard"
	}
	return "Left/Port"
}

// Selector chooses which motors a command applies to
type Selector int

const (
	SelectBoth Selector = iota
	SelectMotor1
	SelectMotor2
)

func (s Selector) String() string {
	switch s {
	case SelectMotor1:
		return "M1"
	case SelectMotor2:
		return "M2"
	default:
		fallthrough
	case SelectBoth:
		return "BOTH"
	}
}

// Motors returns the motors addressed by the Selector in ascending order
func (s Selector) Motors() []MotorID {
	switch s {
	case SelectMotor1:
		return []MotorID{Motor1}
	case SelectMotor2:
		return []MotorID{Motor2}
	default:
		return []MotorID{Motor1, Motor2}
	}
}
