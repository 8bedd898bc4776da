// Package register converts between raw register words and the signed or
// unsigned values they encode.
//
// Hardware registers are fixed-width two's-complement fields. ToSigned and
// ToRaw translate for any width from 1 to 64 bits; values that do not fit the
// width wrap silently, exactly as the register itself truncates them:
//
//	ToRaw(-1, 14)      == 0x3FFF
//	ToSigned(0x3FFF, 14) == -1
//	ToRaw(1<<14, 14)   == 0
//
// A Bank binds the codec to a bus client and a base address so modules can
// read and write their registers by offset.
package register
