// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package ppc

var (
	opRT  = &Operand{Name: "RT", Kind: KindGPR, Bits: InsnBits{6, 5}, Access: Write}
	opRS  = &Operand{Name: "RS", Kind: KindGPR, Bits: InsnBits{6, 5}, Access: Read}
	opRTm = &Operand{Name: "RT", Kind: KindGPR, Bits: InsnBits{6, 5}, Access: Write, Flags: FlagMultiple}
	opRSm = &Operand{Name: "RS", Kind: KindGPR, Bits: InsnBits{6, 5}, Access: Read, Flags: FlagMultiple}
	opRA  = &Operand{Name: "RA", Kind: KindGPR, Bits: InsnBits{11, 5}, Access: Read}
	opRAw = &Operand{Name: "RA", Kind: KindGPR, Bits: InsnBits{11, 5}, Access: Write}
	opRAu = &Operand{Name: "RA", Kind: KindGPR, Bits: InsnBits{11, 5}, Access: ReadWrite}
	opRA0 = &Operand{Name: "RA", Kind: KindGPR0, Bits: InsnBits{11, 5}, Access: Read}
	opRB  = &Operand{Name: "RB", Kind: KindGPR, Bits: InsnBits{16, 5}, Access: Read}

	// RS of mr/not: the same register is also encoded in RB.
	opRSB = &Operand{Name: "RS", Kind: KindGPR, Bits: InsnBits{6, 5}, Access: Read,
		extract: func(word uint32) int64 { return int64(extractBits(word, InsnBits{6, 5})) },
		insert: func(word uint32, v int64) uint32 {
			return word | encodeBits(uint32(v), InsnBits{6, 5}) | encodeBits(uint32(v), InsnBits{16, 5})
		},
	}

	opFRT = &Operand{Name: "FRT", Kind: KindFPR, Bits: InsnBits{6, 5}, Access: Write}
	opFRS = &Operand{Name: "FRS", Kind: KindFPR, Bits: InsnBits{6, 5}, Access: Read}
	opFRA = &Operand{Name: "FRA", Kind: KindFPR, Bits: InsnBits{11, 5}, Access: Read}
	opFRB = &Operand{Name: "FRB", Kind: KindFPR, Bits: InsnBits{16, 5}, Access: Read}
	opFRC = &Operand{Name: "FRC", Kind: KindFPR, Bits: InsnBits{21, 5}, Access: Read}

	opBF  = &Operand{Name: "BF", Kind: KindCR, Bits: InsnBits{6, 3}}
	opOBF = &Operand{Name: "BF", Kind: KindCR, Bits: InsnBits{6, 3}, Flags: FlagOptional}
	opCR  = &Operand{Name: "CR", Kind: KindCR, Bits: InsnBits{11, 3}, Flags: FlagOptional}
	opBO  = &Operand{Name: "BO", Bits: InsnBits{6, 5}}
	opBI  = &Operand{Name: "BI", Bits: InsnBits{11, 5}}
	opTO  = &Operand{Name: "TO", Bits: InsnBits{6, 5}}
	opFXM = &Operand{Name: "FXM", Bits: InsnBits{12, 8}}

	opSI = &Operand{Name: "SI", Bits: InsnBits{16, 16}, Flags: FlagSigned}
	opUI = &Operand{Name: "UI", Bits: InsnBits{16, 16}}
	opD  = &Operand{Name: "D", Bits: InsnBits{16, 16}, Flags: FlagSigned | FlagParens}
	opSH = &Operand{Name: "SH", Bits: InsnBits{16, 5}}
	opMB = &Operand{Name: "MB", Bits: InsnBits{21, 5}}
	opME = &Operand{Name: "ME", Bits: InsnBits{26, 5}}

	opLI  = &Operand{Name: "LI", Bits: InsnBits{6, 24}, Shift: 2, Flags: FlagSigned | FlagRelative}
	opLIA = &Operand{Name: "LI", Bits: InsnBits{6, 24}, Shift: 2, Flags: FlagSigned | FlagAbsolute}
	opBD  = &Operand{Name: "BD", Bits: InsnBits{16, 14}, Shift: 2, Flags: FlagSigned | FlagRelative}
	opBDA = &Operand{Name: "BD", Bits: InsnBits{16, 14}, Shift: 2, Flags: FlagSigned | FlagAbsolute}

	// SPR numbers are encoded with their two 5-bit halves swapped.
	opSPR = &Operand{Name: "SPR", Bits: InsnBits{11, 10},
		extract: func(word uint32) int64 {
			f := extractBits(word, InsnBits{11, 10})
			return int64(f&0x1f<<5 | f>>5)
		},
		insert: func(word uint32, v int64) uint32 {
			spr := uint32(v)
			return word | encodeBits(spr&0x1f<<5|spr>>5&0x1f, InsnBits{11, 10})
		},
	}

	// slwi n is rlwinm RA,RS,n,0,31-n.
	opSLN = &Operand{Name: "N", Bits: InsnBits{16, 5},
		extract: func(word uint32) int64 { return int64(extractBits(word, opSH.Bits)) },
		insert: func(word uint32, v int64) uint32 {
			return word | encodeBits(uint32(v), opSH.Bits) | encodeBits(uint32(31-v), opME.Bits)
		},
	}
	// srwi n is rlwinm RA,RS,32-n,n,31.
	opSRN = &Operand{Name: "N", Bits: InsnBits{21, 5},
		extract: func(word uint32) int64 { return int64(extractBits(word, opMB.Bits)) },
		insert: func(word uint32, v int64) uint32 {
			return word | encodeBits(uint32(32-v), opSH.Bits) | encodeBits(uint32(v), opMB.Bits)
		},
	}

	// Paired-single quantized load/store operands.
	opPSD = &Operand{Name: "d", Bits: InsnBits{20, 12}, Flags: FlagSigned | FlagParens}
	opPSW = &Operand{Name: "W", Bits: InsnBits{16, 1}}
	opPSI = &Operand{Name: "I", Bits: InsnBits{17, 3}}
)

const (
	mPrim  = 0xfc000000
	mX     = 0xfc0007ff // primary, extended opcode in bits 21-30 and Rc
	mA     = 0xfc00003f // primary, A-form extended opcode in bits 26-30 and Rc
	mCmp   = 0xfc6007ff // X-form compare with L=0
	mDCmp  = 0xfc600000 // D-form compare with L=0
	mRT    = 0x03e00000
	mRA    = 0x001f0000
	mRB    = 0x0000f800
	mRC    = 0x000007c0
	mME    = 0x0000003e
	mAALK  = 0x00000003
	mBI2   = 0x00030000 // condition bit within the CR field
	mWhole = 0xffffffff
)

func prim(p uint32) uint32 {
	return p << 26
}

// xo builds X/XO/XL/A-form opcodes: the extended opcode always ends at bit 30.
func xo(p, x uint32) uint32 {
	return p<<26 | x<<1
}

func ins(name string, opcode, mask uint32, operands ...*Operand) *Opcode {
	return &Opcode{
		Name:     name,
		Opcode:   opcode,
		Mask:     mask,
		Operands: operands,
	}
}

// dot returns op together with its record form (Rc=1).
func dot(op *Opcode) []*Opcode {
	if op.Mask&1 == 0 {
		panic("record form of " + op.Name + " does not fix Rc")
	}
	rec := *op
	rec.Name += "."
	rec.Opcode |= 1
	return []*Opcode{op, &rec}
}

func gekko(ops ...*Opcode) []*Opcode {
	for _, op := range ops {
		op.Family = FamilyGekko
	}
	return ops
}

func group(groups ...[]*Opcode) []*Opcode {
	var res []*Opcode
	for _, g := range groups {
		res = append(res, g...)
	}
	return res
}

// Branch condition encodings: BO value and the bit within the CR field.
var condBranches = []struct {
	name string
	bo   uint32
	bit  uint32
}{
	{"blt", 12, 0},
	{"bgt", 12, 1},
	{"beq", 12, 2},
	{"bso", 12, 3},
	{"bge", 4, 0},
	{"ble", 4, 1},
	{"bne", 4, 2},
	{"bns", 4, 3},
}

func branches() []*Opcode {
	ops := []*Opcode{
		ins("b", prim(18), mPrim|mAALK, opLI),
		ins("ba", prim(18)|2, mPrim|mAALK, opLIA),
		ins("bl", prim(18)|1, mPrim|mAALK, opLI),
		ins("bla", prim(18)|3, mPrim|mAALK, opLIA),
		ins("bdnz", prim(16)|16<<21, mPrim|mRT|mRA|mAALK, opBD),
		ins("bdz", prim(16)|18<<21, mPrim|mRT|mRA|mAALK, opBD),
	}
	for _, c := range condBranches {
		ops = append(ops,
			ins(c.name, prim(16)|c.bo<<21|c.bit<<16, mPrim|mRT|mBI2|mAALK, opCR, opBD),
			ins(c.name+"l", prim(16)|c.bo<<21|c.bit<<16|1, mPrim|mRT|mBI2|mAALK, opCR, opBD),
		)
	}
	for _, c := range condBranches {
		ops = append(ops,
			ins(c.name+"lr", xo(19, 16)|c.bo<<21|c.bit<<16, mPrim|mRT|mBI2|mRB|0x7fe|1, opCR),
			ins(c.name+"ctr", xo(19, 528)|c.bo<<21|c.bit<<16, mPrim|mRT|mBI2|mRB|0x7fe|1, opCR),
		)
	}
	ops = append(ops,
		ins("bc", prim(16), mPrim|mAALK, opBO, opBI, opBD),
		ins("bca", prim(16)|2, mPrim|mAALK, opBO, opBI, opBDA),
		ins("bcl", prim(16)|1, mPrim|mAALK, opBO, opBI, opBD),
		ins("blr", 0x4e800020, mWhole),
		ins("blrl", 0x4e800021, mWhole),
		ins("bctr", 0x4e800420, mWhole),
		ins("bctrl", 0x4e800421, mWhole),
		ins("bclr", xo(19, 16), mPrim|mRB|0x7fe|1, opBO, opBI),
		ins("bcctr", xo(19, 528), mPrim|mRB|0x7fe|1, opBO, opBI),
		ins("isync", 0x4c00012c, mWhole),
		ins("sc", 0x44000002, mWhole),
	)
	return ops
}

func immediates() []*Opcode {
	return group(
		[]*Opcode{
			ins("twi", prim(3), mPrim, opTO, opRA, opSI),
			ins("mulli", prim(7), mPrim, opRT, opRA, opSI),
			ins("subfic", prim(8), mPrim, opRT, opRA, opSI),
			ins("cmplwi", prim(10), mDCmp, opOBF, opRA, opUI),
			ins("cmpwi", prim(11), mDCmp, opOBF, opRA, opSI),
			ins("addic", prim(12), mPrim, opRT, opRA, opSI),
			ins("addic.", prim(13), mPrim, opRT, opRA, opSI),
			ins("li", prim(14), mPrim|mRA, opRT, opSI),
			ins("addi", prim(14), mPrim, opRT, opRA0, opSI),
			ins("lis", prim(15), mPrim|mRA, opRT, opSI),
			ins("addis", prim(15), mPrim, opRT, opRA0, opSI),
			ins("nop", 0x60000000, mWhole),
			ins("ori", prim(24), mPrim, opRAw, opRS, opUI),
			ins("oris", prim(25), mPrim, opRAw, opRS, opUI),
			ins("xori", prim(26), mPrim, opRAw, opRS, opUI),
			ins("xoris", prim(27), mPrim, opRAw, opRS, opUI),
			ins("andi.", prim(28), mPrim, opRAw, opRS, opUI),
			ins("andis.", prim(29), mPrim, opRAw, opRS, opUI),
		},
		dot(ins("rlwimi", prim(20), mPrim|1, opRAu, opRS, opSH, opMB, opME)),
		dot(&Opcode{
			Name:     "slwi",
			Opcode:   prim(21),
			Mask:     mPrim | mRC | 1,
			Operands: []*Operand{opRAw, opRS, opSLN},
			check: func(word uint32) bool {
				sh := extractBits(word, opSH.Bits)
				return sh != 0 && extractBits(word, opME.Bits) == 31-sh
			},
		}),
		dot(&Opcode{
			Name:     "srwi",
			Opcode:   prim(21) | 31<<1,
			Mask:     mPrim | mME | 1,
			Operands: []*Operand{opRAw, opRS, opSRN},
			check: func(word uint32) bool {
				mb := extractBits(word, opMB.Bits)
				return mb != 0 && extractBits(word, opSH.Bits) == 32-mb
			},
		}),
		dot(ins("clrlwi", prim(21)|31<<1, mPrim|mRB|mME|1, opRAw, opRS, opMB)),
		dot(ins("rotlwi", prim(21)|31<<1, mPrim|mRC|mME|1, opRAw, opRS, opSH)),
		dot(ins("rlwinm", prim(21), mPrim|1, opRAw, opRS, opSH, opMB, opME)),
		dot(ins("rlwnm", prim(23), mPrim|1, opRAw, opRS, opRB, opMB, opME)),
	)
}

func loadStores() []*Opcode {
	return []*Opcode{
		ins("lwz", prim(32), mPrim, opRT, opD, opRA0),
		ins("lwzu", prim(33), mPrim, opRT, opD, opRAu),
		ins("lbz", prim(34), mPrim, opRT, opD, opRA0),
		ins("lbzu", prim(35), mPrim, opRT, opD, opRAu),
		ins("stw", prim(36), mPrim, opRS, opD, opRA0),
		ins("stwu", prim(37), mPrim, opRS, opD, opRAu),
		ins("stb", prim(38), mPrim, opRS, opD, opRA0),
		ins("stbu", prim(39), mPrim, opRS, opD, opRAu),
		ins("lhz", prim(40), mPrim, opRT, opD, opRA0),
		ins("lhzu", prim(41), mPrim, opRT, opD, opRAu),
		ins("lha", prim(42), mPrim, opRT, opD, opRA0),
		ins("lhau", prim(43), mPrim, opRT, opD, opRAu),
		ins("sth", prim(44), mPrim, opRS, opD, opRA0),
		ins("sthu", prim(45), mPrim, opRS, opD, opRAu),
		ins("lmw", prim(46), mPrim, opRTm, opD, opRA0),
		ins("stmw", prim(47), mPrim, opRSm, opD, opRA0),
		ins("lfs", prim(48), mPrim, opFRT, opD, opRA0),
		ins("lfsu", prim(49), mPrim, opFRT, opD, opRAu),
		ins("lfd", prim(50), mPrim, opFRT, opD, opRA0),
		ins("lfdu", prim(51), mPrim, opFRT, opD, opRAu),
		ins("stfs", prim(52), mPrim, opFRS, opD, opRA0),
		ins("stfsu", prim(53), mPrim, opFRS, opD, opRAu),
		ins("stfd", prim(54), mPrim, opFRS, opD, opRA0),
		ins("stfdu", prim(55), mPrim, opFRS, opD, opRAu),
	}
}

// Primary opcode 31: register-register integer instructions.
func integerX() []*Opcode {
	ops := []*Opcode{
		ins("cmpw", xo(31, 0), mCmp, opOBF, opRA, opRB),
		ins("cmplw", xo(31, 32), mCmp, opOBF, opRA, opRB),
		ins("trap", 0x7fe00008, mWhole),
		ins("tw", xo(31, 4), mX, opTO, opRA, opRB),
		ins("mflr", 0x7c0802a6, mWhole&^mRT, opRT),
		ins("mtlr", 0x7c0803a6, mWhole&^mRT, opRS),
		ins("mfctr", 0x7c0902a6, mWhole&^mRT, opRT),
		ins("mtctr", 0x7c0903a6, mWhole&^mRT, opRS),
		ins("mfspr", xo(31, 339), mX, opRT, opSPR),
		ins("mtspr", xo(31, 467), mX, opSPR, opRS),
		ins("mfcr", 0x7c000026, mWhole&^mRT, opRT),
		ins("mtcrf", 0x7c000120, 0xfc100fff, opFXM, opRS),
		ins("sync", 0x7c0004ac, mWhole),
		ins("eieio", 0x7c0006ac, mWhole),
		ins("stwcx.", xo(31, 150)|1, mX, opRS, opRA0, opRB),
	}
	arith := []struct {
		name string
		xo   uint32
	}{
		{"subfc", 8}, {"addc", 10}, {"mulhwu", 11}, {"subf", 40}, {"mulhw", 75},
		{"subfe", 136}, {"adde", 138}, {"mullw", 235}, {"add", 266}, {"divwu", 459},
		{"divw", 491},
	}
	for _, a := range arith {
		ops = append(ops, dot(ins(a.name, xo(31, a.xo), mX, opRT, opRA, opRB))...)
	}
	unary := []struct {
		name string
		xo   uint32
	}{
		{"neg", 104}, {"subfze", 200}, {"addze", 202}, {"subfme", 232}, {"addme", 234},
	}
	for _, a := range unary {
		ops = append(ops, dot(ins(a.name, xo(31, a.xo), mX|mRB, opRT, opRA))...)
	}
	sameRSRB := func(word uint32) bool {
		return extractBits(word, opRS.Bits) == extractBits(word, opRB.Bits)
	}
	for _, op := range dot(ins("mr", xo(31, 444), mX, opRAw, opRSB)) {
		op.check = sameRSRB
		ops = append(ops, op)
	}
	for _, op := range dot(ins("not", xo(31, 124), mX, opRAw, opRSB)) {
		op.check = sameRSRB
		ops = append(ops, op)
	}
	logic := []struct {
		name string
		xo   uint32
	}{
		{"slw", 24}, {"and", 28}, {"andc", 60}, {"nor", 124}, {"eqv", 284}, {"xor", 316},
		{"orc", 412}, {"or", 444}, {"nand", 476}, {"srw", 536}, {"sraw", 792},
	}
	for _, l := range logic {
		ops = append(ops, dot(ins(l.name, xo(31, l.xo), mX, opRAw, opRS, opRB))...)
	}
	ops = append(ops, dot(ins("srawi", xo(31, 824), mX, opRAw, opRS, opSH))...)
	for _, u := range []struct {
		name string
		xo   uint32
	}{{"cntlzw", 26}, {"extsh", 922}, {"extsb", 954}} {
		ops = append(ops, dot(ins(u.name, xo(31, u.xo), mX|mRB, opRAw, opRS))...)
	}
	indexed := []struct {
		name string
		xo   uint32
		rt   *Operand
		ra   *Operand
	}{
		{"lwarx", 20, opRT, opRA0},
		{"lwzx", 23, opRT, opRA0},
		{"lwzux", 55, opRT, opRAu},
		{"lbzx", 87, opRT, opRA0},
		{"lbzux", 119, opRT, opRAu},
		{"stwx", 151, opRS, opRA0},
		{"stwux", 183, opRS, opRAu},
		{"stbx", 215, opRS, opRA0},
		{"stbux", 247, opRS, opRAu},
		{"lhzx", 279, opRT, opRA0},
		{"lhzux", 311, opRT, opRAu},
		{"lhax", 343, opRT, opRA0},
		{"lhaux", 375, opRT, opRAu},
		{"sthx", 407, opRS, opRA0},
		{"sthux", 439, opRS, opRAu},
		{"lfsx", 535, opFRT, opRA0},
		{"lfsux", 567, opFRT, opRAu},
		{"lfdx", 599, opFRT, opRA0},
		{"lfdux", 631, opFRT, opRAu},
		{"stfsx", 663, opFRS, opRA0},
		{"stfsux", 695, opFRS, opRAu},
		{"stfdx", 727, opFRS, opRA0},
		{"stfdux", 759, opFRS, opRAu},
		{"stfiwx", 983, opFRS, opRA0},
	}
	for _, x := range indexed {
		ops = append(ops, ins(x.name, xo(31, x.xo), mX, x.rt, x.ra, opRB))
	}
	for _, c := range []struct {
		name string
		xo   uint32
	}{{"dcbst", 54}, {"dcbf", 86}, {"icbi", 982}, {"dcbz", 1014}} {
		ops = append(ops, ins(c.name, xo(31, c.xo), mX|mRT, opRA0, opRB))
	}
	return ops
}

type aform struct {
	name string
	xo   uint32
}

// Floating point A-forms come in three operand shapes depending on
// which of FRB/FRC is unused.
func floatA(primary uint32, fam Family, addLike, mulLike, fused []aform) []*Opcode {
	var ops []*Opcode
	for _, a := range addLike {
		ops = append(ops, dot(ins(a.name, xo(primary, a.xo), mA|mRC, opFRT, opFRA, opFRB))...)
	}
	for _, a := range mulLike {
		ops = append(ops, dot(ins(a.name, xo(primary, a.xo), mA|mRB, opFRT, opFRA, opFRC))...)
	}
	for _, a := range fused {
		ops = append(ops, dot(ins(a.name, xo(primary, a.xo), mA, opFRT, opFRA, opFRC, opFRB))...)
	}
	for _, op := range ops {
		op.Family = fam
	}
	return ops
}

func floats() []*Opcode {
	ops := group(
		floatA(59, FamilyPPC,
			[]aform{{"fdivs", 18}, {"fsubs", 20}, {"fadds", 21}},
			[]aform{{"fmuls", 25}},
			[]aform{{"fmsubs", 28}, {"fmadds", 29}, {"fnmsubs", 30}, {"fnmadds", 31}}),
		dot(ins("fres", xo(59, 24), mA|mRA|mRC, opFRT, opFRB)),
		floatA(63, FamilyPPC,
			[]aform{{"fdiv", 18}, {"fsub", 20}, {"fadd", 21}},
			[]aform{{"fmul", 25}},
			[]aform{{"fsel", 23}, {"fmsub", 28}, {"fmadd", 29}, {"fnmsub", 30}, {"fnmadd", 31}}),
		dot(ins("frsqrte", xo(63, 26), mA|mRA|mRC, opFRT, opFRB)),
		[]*Opcode{
			ins("fcmpu", xo(63, 0), mCmp, opBF, opFRA, opFRB),
			ins("fcmpo", xo(63, 32), mCmp, opBF, opFRA, opFRB),
		},
		dot(ins("mffs", xo(63, 583), mX|mRA|mRB, opFRT)),
	)
	for _, u := range []aform{
		{"frsp", 12}, {"fctiw", 14}, {"fctiwz", 15}, {"fneg", 40}, {"fmr", 72},
		{"fnabs", 136}, {"fabs", 264},
	} {
		ops = append(ops, dot(ins(u.name, xo(63, u.xo), mX|mRA, opFRT, opFRB))...)
	}
	return ops
}

// Gekko/Broadway paired-single extension.
func pairedSingles() []*Opcode {
	ops := group(
		gekko(
			ins("psq_l", prim(56), mPrim, opFRT, opPSD, opRA0, opPSW, opPSI),
			ins("psq_lu", prim(57), mPrim, opFRT, opPSD, opRAu, opPSW, opPSI),
			ins("psq_st", prim(60), mPrim, opFRS, opPSD, opRA0, opPSW, opPSI),
			ins("psq_stu", prim(61), mPrim, opFRS, opPSD, opRAu, opPSW, opPSI),
		),
		floatA(4, FamilyGekko,
			[]aform{{"ps_div", 18}, {"ps_sub", 20}, {"ps_add", 21}},
			[]aform{{"ps_mul", 25}, {"ps_muls0", 12}, {"ps_muls1", 13}},
			[]aform{
				{"ps_sum0", 10}, {"ps_sum1", 11}, {"ps_madds0", 14}, {"ps_madds1", 15},
				{"ps_sel", 23}, {"ps_msub", 28}, {"ps_madd", 29}, {"ps_nmsub", 30}, {"ps_nmadd", 31},
			}),
	)
	for _, u := range []aform{{"ps_neg", 40}, {"ps_mr", 72}, {"ps_nabs", 136}, {"ps_abs", 264}} {
		ops = append(ops, gekko(dot(ins(u.name, xo(4, u.xo), mX|mRA, opFRT, opFRB))...)...)
	}
	for _, m := range []aform{{"ps_merge00", 528}, {"ps_merge01", 560}, {"ps_merge10", 592}, {"ps_merge11", 624}} {
		ops = append(ops, gekko(dot(ins(m.name, xo(4, m.xo), mX, opFRT, opFRA, opFRB))...)...)
	}
	return ops
}

func init() {
	register(branches()...)
	register(immediates()...)
	register(loadStores()...)
	register(integerX()...)
	register(floats()...)
	register(pairedSingles()...)
}
