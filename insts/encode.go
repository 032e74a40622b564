package insts

// Encoders build LC-3b machine words. Register arguments are 0-7; offsets
// are given in encoding units (words for BR, JSR, LEA, LDW and STW; bytes
// for LDB and STB) and are truncated to the field width.

// EncodeADD encodes ADD DR, SR1, SR2.
func EncodeADD(dr, sr1, sr2 uint8) uint16 {
	return operate(0x1, dr, sr1, sr2)
}

// EncodeADDImm encodes ADD DR, SR1, #imm5.
func EncodeADDImm(dr, sr1 uint8, imm int16) uint16 {
	return operateImm(0x1, dr, sr1, imm)
}

// EncodeAND encodes AND DR, SR1, SR2.
func EncodeAND(dr, sr1, sr2 uint8) uint16 {
	return operate(0x5, dr, sr1, sr2)
}

// EncodeANDImm encodes AND DR, SR1, #imm5.
func EncodeANDImm(dr, sr1 uint8, imm int16) uint16 {
	return operateImm(0x5, dr, sr1, imm)
}

// EncodeXOR encodes XOR DR, SR1, SR2.
func EncodeXOR(dr, sr1, sr2 uint8) uint16 {
	return operate(0x9, dr, sr1, sr2)
}

// EncodeXORImm encodes XOR DR, SR1, #imm5.
func EncodeXORImm(dr, sr1 uint8, imm int16) uint16 {
	return operateImm(0x9, dr, sr1, imm)
}

// EncodeNOT encodes NOT DR, SR (XOR with -1).
func EncodeNOT(dr, sr uint8) uint16 {
	return operateImm(0x9, dr, sr, -1)
}

// EncodeBR encodes BR with the given condition and PC-relative word offset.
func EncodeBR(cond Cond, offset int16) uint16 {
	return uint16(cond&7)<<9 | uint16(offset)&0x1FF
}

// EncodeJMP encodes JMP BaseR.
func EncodeJMP(base uint8) uint16 {
	return 0xC<<12 | reg(base)<<6
}

// EncodeRET encodes RET (JMP R7).
func EncodeRET() uint16 {
	return EncodeJMP(LinkReg)
}

// EncodeJSR encodes JSR with a PC-relative word offset.
func EncodeJSR(offset int16) uint16 {
	return 0x4<<12 | 1<<11 | uint16(offset)&0x7FF
}

// EncodeJSRR encodes JSRR BaseR.
func EncodeJSRR(base uint8) uint16 {
	return 0x4<<12 | reg(base)<<6
}

// EncodeLDB encodes LDB DR, BaseR, #boffset6.
func EncodeLDB(dr, base uint8, offset int16) uint16 {
	return memory(0x2, dr, base, offset)
}

// EncodeLDW encodes LDW DR, BaseR, #offset6.
func EncodeLDW(dr, base uint8, offset int16) uint16 {
	return memory(0x6, dr, base, offset)
}

// EncodeSTB encodes STB SR, BaseR, #boffset6.
func EncodeSTB(sr, base uint8, offset int16) uint16 {
	return memory(0x3, sr, base, offset)
}

// EncodeSTW encodes STW SR, BaseR, #offset6.
func EncodeSTW(sr, base uint8, offset int16) uint16 {
	return memory(0x7, sr, base, offset)
}

// EncodeLSHF encodes LSHF DR, SR, #amount4.
func EncodeLSHF(dr, sr, amount uint8) uint16 {
	return shift(dr, sr, 0b00, amount)
}

// EncodeRSHFL encodes RSHFL DR, SR, #amount4.
func EncodeRSHFL(dr, sr, amount uint8) uint16 {
	return shift(dr, sr, 0b01, amount)
}

// EncodeRSHFA encodes RSHFA DR, SR, #amount4.
func EncodeRSHFA(dr, sr, amount uint8) uint16 {
	return shift(dr, sr, 0b11, amount)
}

// EncodeLEA encodes LEA DR, with a PC-relative word offset.
func EncodeLEA(dr uint8, offset int16) uint16 {
	return 0xE<<12 | reg(dr)<<9 | uint16(offset)&0x1FF
}

// EncodeTRAP encodes TRAP vect8.
func EncodeTRAP(vector uint8) uint16 {
	return 0xF<<12 | uint16(vector)
}

// EncodeHALT encodes TRAP x25.
func EncodeHALT() uint16 {
	return EncodeTRAP(TrapHALT)
}

// EncodeRTI encodes RTI.
func EncodeRTI() uint16 {
	return 0x8 << 12
}

func reg(r uint8) uint16 {
	return uint16(r & 7)
}

func operate(opcode uint16, dr, sr1, sr2 uint8) uint16 {
	return opcode<<12 | reg(dr)<<9 | reg(sr1)<<6 | reg(sr2)
}

func operateImm(opcode uint16, dr, sr1 uint8, imm int16) uint16 {
	return opcode<<12 | reg(dr)<<9 | reg(sr1)<<6 | 1<<5 | uint16(imm)&0x1F
}

func memory(opcode uint16, r, base uint8, offset int16) uint16 {
	return opcode<<12 | reg(r)<<9 | reg(base)<<6 | uint16(offset)&0x3F
}

func shift(dr, sr uint8, kind uint16, amount uint8) uint16 {
	return 0xD<<12 | reg(dr)<<9 | reg(sr)<<6 | kind<<4 | uint16(amount&0xF)
}
