package domain

import "github.com/google/uuid"

type UserID = uuid.UUID
type OTPID = uuid.UUID
