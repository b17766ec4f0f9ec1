package class

import "github.com/go-playground/validator/v10"

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Clean()
	return validate.Struct(nc)
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	uc.Clean()
	return validate.Struct(uc)
}

func (enr *Enrollment) Validate(validate *validator.Validate) error {
	return validate.Struct(enr)
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Clean()
	return validate.Struct(ns)
}
