package models

// JointName identifies one servo of the lamp arm.
type JointName string

// Joints of the lamp, base to head (servo IDs 1-5).
const (
	BaseYaw    JointName = "base_yaw"
	BasePitch  JointName = "base_pitch"
	ElbowPitch JointName = "elbow_pitch"
	WristRoll  JointName = "wrist_roll"
	WristPitch JointName = "wrist_pitch"
)

func AllJoints() []JointName {
	return []JointName{BaseYaw, BasePitch, ElbowPitch, WristRoll, WristPitch}
}

// Channel is the recording column holding the joint position.
func (j JointName) Channel() string { return string(j) + ".pos" }
