// Package config holds the training parameters shared by every bsvm
// component, together with eager validation and file/env loading.
//
//	p, err := config.Load("train.yaml") // BSVM_BUDGET=200 overrides budget
//	if err != nil {
//		return err
//	}
//	p = p.Normalize(sink)
package config
